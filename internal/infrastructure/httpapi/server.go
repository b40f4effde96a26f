// Package httpapi is the operator-facing admin surface: schedule
// status and config, manual triggers, and the split prepare/publish
// endpoints that allow human review between snapshot and commit.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"SignalScanner/internal/domain"
	"SignalScanner/internal/usecase"
)

// Server exposes the admin API over gin.
type Server struct {
	engine    *gin.Engine
	scheduler *usecase.Scheduler
	pipeline  *usecase.Pipeline
	logger    *slog.Logger
	defaults  domain.SourceConfig
	mode      domain.PublishMode
}

// NewServer wires routes against the scheduler and pipeline.
func NewServer(scheduler *usecase.Scheduler, pipeline *usecase.Pipeline, defaults domain.SourceConfig, mode domain.PublishMode, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		scheduler: scheduler,
		pipeline:  pipeline,
		logger:    logger,
		defaults:  defaults,
		mode:      mode,
	}

	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	{
		api.GET("/status", s.status)
		api.PUT("/schedule", s.updateSchedule)
		api.POST("/trigger", s.trigger)
		api.POST("/prepare", s.prepare)
		api.POST("/publish", s.publish)
		api.POST("/generate", s.generate)
	}
	return s
}

// Handler exposes the router so the caller owns the http.Server and
// its shutdown.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"schedule": s.scheduler.Config(),
		"status":   s.scheduler.Status(),
	})
}

func (s *Server) updateSchedule(c *gin.Context) {
	var cfg domain.ScheduleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.scheduler.UpdateConfig(c.Request.Context(), cfg)
	c.JSON(http.StatusOK, gin.H{"schedule": s.scheduler.Config()})
}

func (s *Server) trigger(c *gin.Context) {
	result, err := s.scheduler.TriggerManualRun(c.Request.Context())
	if err != nil {
		s.busyOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) prepare(c *gin.Context) {
	candidates, saveErrs := s.pipeline.Prepare(c.Request.Context(), s.defaults)

	titles := make([]string, 0, len(candidates))
	for _, sig := range candidates {
		titles = append(titles, sig.Title)
	}
	c.JSON(http.StatusOK, gin.H{
		"prepared": len(candidates),
		"titles":   titles,
		"errors":   saveErrs,
	})
}

func (s *Server) publish(c *gin.Context) {
	var req struct {
		Limit int    `json:"limit"`
		Mode  string `json:"mode"`
	}
	// Body is optional; defaults publish everything pending.
	_ = c.ShouldBindJSON(&req)

	mode := s.mode
	if req.Mode != "" {
		mode = domain.PublishMode(req.Mode)
	}

	result, err := s.pipeline.PublishPending(c.Request.Context(), req.Limit, mode)
	if err != nil {
		s.busyOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) generate(c *gin.Context) {
	var req struct {
		Topics int `json:"topics"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Topics <= 0 {
		req.Topics = 3
	}

	result, err := s.pipeline.Generate(c.Request.Context(), req.Topics)
	if err != nil {
		s.busyOrError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) busyOrError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if s.logger != nil {
		s.logger.Error("admin request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
