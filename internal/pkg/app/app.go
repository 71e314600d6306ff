package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	router "tmichat/internal/app/adapters/http"
	"tmichat/internal/app/adapters/message"
	"tmichat/internal/app/adapters/metrics"
	"tmichat/internal/app/infrastructure/config"
	"tmichat/pkg/logger"
	"tmichat/pkg/tmi"
)

const (
	configPath      = "config.json"
	shutdownTimeout = 5 * time.Second
)

func New() error {
	manager, err := config.New(configPath)
	if err != nil {
		return err
	}
	cfg := manager.Get()

	log := logger.New(logger.Options{Level: cfg.App.LogLevel, File: cfg.App.LogFile})
	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}

	client := tmi.New(cfg.ClientOptions(log))
	defer metrics.Subscribe(client)()

	if cfg.Bot.Enabled {
		bot := message.New(logger.NewPrefixedLogger(log, "bot"), cfg.Bot, client)
		defer client.On(tmi.EventMessage, bot.Handler())()
	}

	client.On(tmi.EventReconnectFailed, func(ev tmi.Event) {
		log.Error("Giving up reconnecting", ev.(tmi.ReconnectFailed).Err, slog.Int("attempts", ev.(tmi.ReconnectFailed).Attempts))
	})

	var r *router.Router
	if cfg.HTTP.Addr != "" {
		r = router.NewRouter(log, cfg.HTTP, client)
		go func() {
			if err := r.Run(); err != nil {
				log.Error("HTTP server stopped", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	log.Info("Chat client connected", slog.String("username", client.Username()), slog.Any("channels", client.Channels()))

	<-ctx.Done()
	log.Info("Shutting down")

	if err := client.Disconnect(); err != nil && !errors.Is(err, tmi.ErrNotConnected) {
		log.Warn("Disconnect failed", slog.String("error", err.Error()))
	}
	if r != nil {
		if err := r.Shutdown(shutdownTimeout); err != nil {
			log.Warn("HTTP shutdown failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
