// Package httpserver exposes the Linear data, the analytics snapshot and the
// BI export tables over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/telemetry"
)

// NewRouter wires the API routes. rec may be nil to disable metrics.
func NewRouter(h *Handler, rec *telemetry.Recorder, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	r.GET("/healthz", h.Health)
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	if rec != nil {
		r.Use(rec.GinMiddleware())
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/test-connection", h.TestConnection)
	api.GET("/teams", h.ListTeams)
	api.GET("/projects", h.ListProjects)
	api.GET("/projects/:id", h.GetProject)
	api.GET("/projects/:id/summary", h.ProjectSummary)
	api.GET("/analytics", h.Analytics)
	api.GET("/charts/:file", h.Chart)

	bi := api.Group("/powerbi")
	bi.GET("/data", h.PowerBI(""))
	for _, table := range []string{"projects", "issues", "teams", "metrics"} {
		bi.GET("/"+table, h.PowerBI(table))
	}

	return r
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
