package config

type Config struct {
	App        App        `json:"app"`
	Identity   Identity   `json:"identity"`
	Connection Connection `json:"connection"`
	Channels   []string   `json:"channels"`
	Proxy      *Proxy     `json:"proxy"`
	Limiter    Limiter    `json:"limiter"`
	HTTP       HTTP       `json:"http"`
	Bot        Bot        `json:"bot"`
}

type App struct {
	LogLevel string `json:"log_level" env:"TMI_LOG_LEVEL"`
	LogFile  string `json:"log_file" env:"TMI_LOG_FILE"`
	GinMode  string `json:"gin_mode"`
	Debug    bool   `json:"debug" env:"TMI_DEBUG"`
}

// Identity is left empty for an anonymous, read-only login.
type Identity struct {
	Username string `json:"username" env:"TMI_USERNAME"`
	OAuth    string `json:"oauth" env:"TMI_OAUTH"`
	ClientID string `json:"client_id" env:"TMI_CLIENT_ID"`
}

type Connection struct {
	Server    string `json:"server" env:"TMI_SERVER"`
	Port      int    `json:"port" env:"TMI_PORT"`
	Secure    bool   `json:"secure"`
	Transport string `json:"transport" env:"TMI_TRANSPORT"` // websocket or tcp

	Reconnect              bool    `json:"reconnect"`
	MaxReconnectAttempts   int     `json:"max_reconnect_attempts"` // 0 - unbounded
	MaxReconnectIntervalMs int     `json:"max_reconnect_interval_ms"`
	ReconnectDecay         float64 `json:"reconnect_decay"`
	ReconnectIntervalMs    int     `json:"reconnect_interval_ms"`

	TimeoutMs        int `json:"timeout_ms"`
	PingIntervalMs   int `json:"ping_interval_ms"`
	CommandTimeoutMs int `json:"command_timeout_ms"`
}

type Proxy struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Limiter - at most Requests outbound lines per PerMs milliseconds.
type Limiter struct {
	Requests int `json:"requests"`
	PerMs    int `json:"per_ms"`
}

type HTTP struct {
	Addr      string `json:"addr" env:"TMI_HTTP_ADDR"`
	AuthToken string `json:"auth_token" env:"TMI_HTTP_AUTH_TOKEN"`
}

type Bot struct {
	Enabled bool   `json:"enabled"`
	Prefix  string `json:"prefix"`
	// Admins may run raffle commands besides the broadcaster and moderators.
	Admins []string `json:"admins"`
}
