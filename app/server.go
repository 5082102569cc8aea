package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IamSpotted/ITSF-Agent/app/handlers"
	"github.com/IamSpotted/ITSF-Agent/app/logger"
	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusServer serves the local status API
type StatusServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewStatusServer creates the HTTP server for router on addr
func NewStatusServer(addr string, router http.Handler, log logger.Logger) *StatusServer {
	return &StatusServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      45 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		log: log.WithComponent("status-server"),
	}
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *StatusServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("status API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// RouterDeps are the handlers and collaborators mounted on the status router
type RouterDeps struct {
	Health         *handlers.HealthHandler
	Status         *handlers.StatusHandler
	JWT            *services.JWTService
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Log            logger.Logger
}

// NewRouter builds the status API routes
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Log.WithComponent("http")))

	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	setupRoutes(router, deps)
	return router
}

// setupRoutes configures HTTP routes
func setupRoutes(router *gin.Engine, deps RouterDeps) {
	router.GET("/health", deps.Health.Health)
	router.GET("/ready", deps.Health.Ready)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/status", deps.Status.Status)
		v1.GET("/events", deps.Status.Events)
		v1.GET("/history", deps.Status.History)

		// operator actions
		ops := v1.Group("", handlers.RequireOperator(deps.JWT))
		ops.POST("/sync", deps.Status.RequestSync)
		ops.DELETE("/state", deps.Status.ResetState)
		ops.POST("/connection/test", deps.Status.TestConnection)
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msg("request served")
	}
}
