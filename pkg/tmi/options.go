package tmi

import (
	"time"

	"golang.org/x/time/rate"

	"tmichat/pkg/logger"
	"tmichat/pkg/tmi/transport"
)

const (
	TransportWebSocket = "websocket"
	TransportTCP       = "tcp"
)

type Identity struct {
	Username string
	// Password is the OAuth token, with or without the "oauth:" prefix.
	Password string
}

func (i Identity) anonymous() bool {
	return i.Username == "" || i.Password == ""
}

type Options struct {
	Channels []string

	Server    string
	Port      int
	Secure    bool
	Transport string

	Reconnect bool
	// MaxReconnectAttempts of 0 retries forever.
	MaxReconnectAttempts int
	MaxReconnectInterval time.Duration
	ReconnectDecay       float64
	ReconnectInterval    time.Duration

	// Timeout bounds the login and every heartbeat reply.
	Timeout      time.Duration
	PingInterval time.Duration
	// CommandTimeout is the floor of the per-command timeout, which also
	// follows the measured latency.
	CommandTimeout time.Duration

	Identity Identity
	// ClientID identifies the application on the WebSocket handshake.
	ClientID string
	Debug    bool
	Logger   logger.Logger

	// Dialer overrides the transport picked from Transport and Proxy.
	Dialer transport.Dialer
	Proxy  *transport.Proxy

	// RateLimit throttles outbound lines; zero disables it.
	RateLimit     rate.Limit
	RateBurst     int
	SendQueueSize int
}

// DefaultOptions returns the options of a reconnecting client on the secure
// WebSocket endpoint.
func DefaultOptions() Options {
	return Options{
		Secure:               true,
		Transport:            TransportWebSocket,
		Reconnect:            true,
		MaxReconnectInterval: 30 * time.Second,
		ReconnectDecay:       1.5,
		ReconnectInterval:    time.Second,
		Timeout:              9999 * time.Millisecond,
		PingInterval:         60 * time.Second,
		CommandTimeout:       600 * time.Millisecond,
		SendQueueSize:        256,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.Transport == "" {
		o.Transport = def.Transport
	}
	if o.Server == "" {
		o.Server = "irc-ws.chat.twitch.tv"
		if o.Transport == TransportTCP {
			o.Server = "irc.chat.twitch.tv"
		}
	}
	if o.Port == 0 {
		switch {
		case o.Transport == TransportTCP && o.Secure:
			o.Port = 6697
		case o.Transport == TransportTCP:
			o.Port = 6667
		case o.Secure:
			o.Port = 443
		default:
			o.Port = 80
		}
	}
	if o.MaxReconnectInterval <= 0 {
		o.MaxReconnectInterval = def.MaxReconnectInterval
	}
	if o.ReconnectDecay < 1 {
		o.ReconnectDecay = def.ReconnectDecay
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = def.ReconnectInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = def.PingInterval
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = def.CommandTimeout
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = def.SendQueueSize
	}
	if o.RateLimit > 0 && o.RateBurst <= 0 {
		o.RateBurst = 1
	}

	if o.Logger == nil {
		level := "error"
		if o.Debug {
			level = "debug"
		}
		o.Logger = logger.New(logger.Options{Level: level})
	}

	if o.Dialer == nil {
		if o.Transport == TransportTCP {
			o.Dialer = &transport.TCPDialer{Proxy: o.Proxy}
		} else {
			o.Dialer = &transport.WebSocketDialer{Proxy: o.Proxy, HandshakeTimeout: o.Timeout, ClientID: o.ClientID}
		}
	}

	return o
}

func (o Options) endpoint() transport.Endpoint {
	return transport.Endpoint{Host: o.Server, Port: o.Port, Secure: o.Secure}
}
