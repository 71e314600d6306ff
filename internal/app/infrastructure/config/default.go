package config

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		App: App{
			LogLevel: "info",
			GinMode:  "release",
		},
		Connection: Connection{
			Secure:                 true,
			Transport:              "websocket",
			Reconnect:              true,
			MaxReconnectIntervalMs: 30000,
			ReconnectDecay:         1.5,
			ReconnectIntervalMs:    1000,
			TimeoutMs:              9999,
			PingIntervalMs:         60000,
			CommandTimeoutMs:       600,
		},
		Channels: []string{},
		Limiter: Limiter{
			Requests: 20,
			PerMs:    30000,
		},
		HTTP: HTTP{
			Addr: ":8080",
		},
		Bot: Bot{
			Enabled: true,
			Prefix:  "!",
			Admins:  []string{},
		},
	}
}
