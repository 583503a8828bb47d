// Package server exposes the live status of a running comparison over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeu5/rl-abstraction/types"
)

// StatusSource reports the status of every experiment
type StatusSource interface {
	Statuses() map[string]types.ExperimentStatus
}

type StatusServer struct {
	ctx    context.Context
	runID  string
	source StatusSource
	logger *slog.Logger
	server *http.Server
}

func NewStatusServer(ctx context.Context, addr, runID string, source StatusSource) *StatusServer {
	s := &StatusServer{
		ctx:    ctx,
		runID:  runID,
		source: source,
		logger: slog.Default(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/healthz", healthHandler)
	r.GET("/status", s.handleStatus)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *StatusServer) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Handler returns the router serving the endpoints
func (s *StatusServer) Handler() http.Handler {
	return s.server.Handler
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *StatusServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"run_id":      s.runID,
		"experiments": s.source.Statuses(),
	})
}

// Start serves in the background until the context is cancelled
func (s *StatusServer) Start() {
	go func() {
		s.logger.Info("status server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", "error", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}()
}
