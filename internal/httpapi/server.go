// Package httpapi serves the operator HTTP API.
//
// Routes:
//
//	GET  /health
//	GET  /metrics
//	GET  /v1/communities/:id/joins?limit=N
//	GET  /v1/communities/:id/baseline
//	POST /v1/communities/:id/snapshot
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/invitetrack/internal/cooldown"
	"github.com/roach88/invitetrack/internal/invite"
	"github.com/roach88/invitetrack/internal/metrics"
)

// Store is the read side the API exposes. Implemented by *store.Store.
type Store interface {
	Ping(ctx context.Context) error
	ReadJoins(ctx context.Context, communityID string, limit int) ([]invite.JoinRecord, error)
	ListBaselines(ctx context.Context, communityID string) ([]invite.Baseline, error)
}

// Snapshotter refreshes a community baseline. Implemented by *engine.Engine.
type Snapshotter interface {
	Snapshot(ctx context.Context, communityID string) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Store       Store
	Snapshotter Snapshotter
	Cooldown    cooldown.Tracker // nil disables throttling
	Metrics     *metrics.Metrics // nil disables /metrics
	Logger      *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	log    *zap.Logger
	engine *gin.Engine
}

// New builds the router.
func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{deps: deps, log: log.Named("http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))

	r.GET("/health", s.health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/v1/communities/:id")
	{
		v1.GET("/joins", s.listJoins)
		v1.GET("/baseline", s.listBaseline)
		v1.POST("/snapshot", s.snapshot)
	}

	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down with a
// five second grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
