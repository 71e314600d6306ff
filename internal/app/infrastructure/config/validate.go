package config

import (
	"errors"
	"fmt"
	"strings"
)

// validate checks cfg and normalizes the channel names in place.
func validate(cfg *Config) error {
	// app
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	if cfg.App.LogLevel != "" && !validLevels[cfg.App.LogLevel] {
		return fmt.Errorf("app.log_level must be one of trace, debug, info, warn, error, fatal; got %s", cfg.App.LogLevel)
	}

	// identity
	if cfg.Identity.OAuth != "" && cfg.Identity.Username == "" {
		return errors.New("identity.username is required when identity.oauth is set")
	}

	// connection
	if cfg.Connection.Transport != "" && cfg.Connection.Transport != "websocket" && cfg.Connection.Transport != "tcp" {
		return fmt.Errorf("connection.transport must be 'websocket' or 'tcp'; got %s", cfg.Connection.Transport)
	}
	if cfg.Connection.Port < 0 || cfg.Connection.Port > 65535 {
		return errors.New("connection.port must be [0,65535]")
	}
	if cfg.Connection.MaxReconnectAttempts < 0 {
		return errors.New("connection.max_reconnect_attempts must be >= 0")
	}
	if cfg.Connection.ReconnectDecay != 0 && cfg.Connection.ReconnectDecay < 1 {
		return errors.New("connection.reconnect_decay must be >= 1")
	}
	if cfg.Connection.ReconnectIntervalMs < 0 || cfg.Connection.MaxReconnectIntervalMs < 0 {
		return errors.New("connection reconnect intervals must be >= 0")
	}
	if cfg.Connection.MaxReconnectIntervalMs != 0 && cfg.Connection.MaxReconnectIntervalMs < cfg.Connection.ReconnectIntervalMs {
		return errors.New("connection.max_reconnect_interval_ms must not be below connection.reconnect_interval_ms")
	}
	if cfg.Connection.TimeoutMs < 0 || cfg.Connection.PingIntervalMs < 0 || cfg.Connection.CommandTimeoutMs < 0 {
		return errors.New("connection timeouts must be >= 0")
	}

	// channels
	for i, ch := range cfg.Channels {
		ch = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
		if ch == "" {
			return fmt.Errorf("channels[%d] is empty", i)
		}
		cfg.Channels[i] = ch
	}

	// proxy
	if cfg.Proxy != nil && cfg.Proxy.Address != "" && (cfg.Proxy.Port <= 0 || cfg.Proxy.Port > 65535) {
		return errors.New("proxy.port must be [1,65535]")
	}

	// limiter
	if (cfg.Limiter.Requests != 0 && cfg.Limiter.PerMs == 0) || (cfg.Limiter.Requests == 0 && cfg.Limiter.PerMs != 0) {
		return errors.New("limiter.requests and limiter.per_ms must both be set or both be zero")
	}
	if cfg.Limiter.Requests < 0 || cfg.Limiter.PerMs < 0 {
		return errors.New("limiter values must be >= 0")
	}

	// bot
	if cfg.Bot.Enabled && cfg.Bot.Prefix == "" {
		return errors.New("bot.prefix is required when the bot is enabled")
	}

	return nil
}
