package config

import (
	"time"

	"golang.org/x/time/rate"

	"tmichat/pkg/logger"
	"tmichat/pkg/tmi"
	"tmichat/pkg/tmi/transport"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ClientOptions converts the config into chat client options. Zero values
// fall back to the client defaults.
func (cfg *Config) ClientOptions(log logger.Logger) tmi.Options {
	c := cfg.Connection

	opts := tmi.Options{
		Channels:             append([]string(nil), cfg.Channels...),
		Server:               c.Server,
		Port:                 c.Port,
		Secure:               c.Secure,
		Transport:            c.Transport,
		Reconnect:            c.Reconnect,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		MaxReconnectInterval: ms(c.MaxReconnectIntervalMs),
		ReconnectDecay:       c.ReconnectDecay,
		ReconnectInterval:    ms(c.ReconnectIntervalMs),
		Timeout:              ms(c.TimeoutMs),
		PingInterval:         ms(c.PingIntervalMs),
		CommandTimeout:       ms(c.CommandTimeoutMs),
		Identity: tmi.Identity{
			Username: cfg.Identity.Username,
			Password: cfg.Identity.OAuth,
		},
		ClientID: cfg.Identity.ClientID,
		Debug:    cfg.App.Debug,
		Logger:   log,
	}

	if cfg.Proxy != nil && cfg.Proxy.Address != "" && cfg.Proxy.Port != 0 {
		opts.Proxy = &transport.Proxy{
			Address:  cfg.Proxy.Address,
			Port:     cfg.Proxy.Port,
			Username: cfg.Proxy.Username,
			Password: cfg.Proxy.Password,
		}
	}

	if cfg.Limiter.Requests > 0 && cfg.Limiter.PerMs > 0 {
		opts.RateLimit = rate.Every(ms(cfg.Limiter.PerMs) / time.Duration(cfg.Limiter.Requests))
		opts.RateBurst = cfg.Limiter.Requests
	}

	return opts
}
