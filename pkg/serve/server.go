// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package serve exposes the experiment archive over a read-only HTTP
// API with Prometheus metrics.
package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/boreal/pkg/store"
)

// ServiceVersion is the result API version.
const ServiceVersion = "0.1.0"

// Config holds server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Debug enables gin's debug mode; off by default.
	Debug bool
}

// DefaultConfig listens on :8080 in release mode.
func DefaultConfig() Config {
	return Config{Addr: ":8080"}
}

// Server serves archived results.
type Server struct {
	cfg     Config
	archive *store.Store
	logger  *slog.Logger
	router  *gin.Engine

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewServer creates a server over the given archive. A nil logger
// uses slog.Default().
func NewServer(cfg Config, archive *store.Store, logger *slog.Logger) (*Server, error) {
	if archive == nil {
		return nil, errors.New("serve: nil archive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		archive: archive,
		logger:  logger,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boreal_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boreal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"route"}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(s.requestsTotal, s.requestDuration)

	router := gin.New()
	router.Use(gin.Recovery(), s.observe)

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.GET("/kinds", s.handleKinds)
		v1.GET("/results/:kind", s.handleList)
		v1.GET("/result/:id", s.handleGet)
	}
	s.router = router
	return s, nil
}

// Router returns the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("result API listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// observe records per-request metrics and an access log line.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	elapsed := time.Since(start)
	s.requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	s.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	s.logger.Debug("request served",
		slog.String("method", c.Request.Method),
		slog.String("route", route),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("elapsed", elapsed),
	)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": ServiceVersion})
}

func (s *Server) handleKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": store.Kinds()})
}

// handleList handles GET /v1/results/:kind?limit=n.
func (s *Server) handleList(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}
	records, err := s.archive.List(c.Request.Context(), kind, limit)
	if err != nil {
		s.logger.Error("list failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
		return
	}
	if records == nil {
		records = []*store.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "count": len(records), "records": records})
}

// handleGet handles GET /v1/result/:id.
func (s *Server) handleGet(c *gin.Context) {
	rec, err := s.archive.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("get failed", slog.String("id", c.Param("id")), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
