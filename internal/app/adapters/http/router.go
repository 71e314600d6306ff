package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tmichat/internal/app/adapters/http/handlers"
	"tmichat/internal/app/adapters/http/middlewares"
	"tmichat/internal/app/infrastructure/config"
	"tmichat/internal/app/ports"
	"tmichat/pkg/logger"
)

type Router struct {
	router      *gin.Engine
	handlers    *handlers.Handlers
	middlewares *middlewares.Middlewares

	log    logger.Logger
	server *http.Server
}

func NewRouter(log logger.Logger, cfg config.HTTP, chat ports.StatusPort) *Router {
	r := &Router{
		router:      gin.New(),
		handlers:    handlers.New(log, chat),
		middlewares: middlewares.New(),
		log:         log,
	}
	r.router.Use(gin.Recovery())

	if cfg.AuthToken != "" {
		pprofGroup := r.router.Group("/", gin.BasicAuth(gin.Accounts{
			"admin": cfg.AuthToken,
		}))
		pprof.Register(pprofGroup)

		r.router.GET("/metrics", gin.BasicAuth(gin.Accounts{
			"admin": cfg.AuthToken,
		}), gin.WrapH(promhttp.Handler()))

		api := r.router.Group("/api", r.middlewares.Auth(cfg.AuthToken))
		r.routes(api)
	} else {
		r.routes(r.router.Group("/api"))
	}

	r.server = r.newServer(cfg.Addr, r.router)
	return r
}

func (r *Router) routes(g *gin.RouterGroup) {
	g.GET("/status", r.handlers.StatusHandler)
	g.GET("/channels", r.handlers.ChannelsHandler)
	g.GET("/channels/:channel", r.handlers.ChannelHandler)
}

// Handler exposes the engine for in-process use.
func (r *Router) Handler() http.Handler {
	return r.router
}

// Run blocks until the server stops. A clean Shutdown returns nil.
func (r *Router) Run() error {
	r.log.Info("HTTP server listening", "addr", r.server.Addr)
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (r *Router) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.server.Shutdown(ctx)
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}
