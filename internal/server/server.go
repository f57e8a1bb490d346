package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/clearsign/internal/pipeline"
	"github.com/yourorg/clearsign/pkg/types"
)

const shutdownTimeout = 30 * time.Second

// Server exposes the documentation pipeline over HTTP.
type Server struct {
	svc      *pipeline.Service
	logger   *slog.Logger
	engine   *gin.Engine
	registry *prometheus.Registry
	metrics  *metrics
}

// New constructs a new Server with routes registered.
func New(svc *pipeline.Service, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &Server{
		svc:      svc,
		logger:   logger,
		engine:   gin.New(),
		registry: reg,
		metrics:  newMetrics(reg),
	}
	srv.engine.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware(logger))
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the http handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully, letting in-flight generations finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.engine.POST("/clear-sign-ai", s.handleClearSign)
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleClearSign(c *gin.Context) {
	start := time.Now()

	var req types.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.observe(outcomeBadRequest, start)
		c.String(http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	// Outbound calls run to completion even if the caller goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	doc, err := s.svc.Generate(ctx, req)
	if err != nil {
		kind := pipeline.KindOf(err)
		s.logger.ErrorContext(ctx, "clear sign request failed",
			"request_id", requestID(c),
			"contract_address", req.ContractAddress,
			"kind", kind.String(),
			"error", err,
		)
		s.metrics.observe(kind.String(), start)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.observe(outcomeOK, start)
	c.PureJSON(http.StatusOK, doc)
}
