package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Futsu-coder/Emotion-Detection/internal/health"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/state"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
	stopTimeout     = 10 * time.Second
)

// PipelineView is the body of GET /api/pipeline
type PipelineView struct {
	Running bool                   `json:"running"`
	Session string                 `json:"session,omitempty"`
	Board   pipeline.BoardSnapshot `json:"board"`
	Stats   pipeline.Stats         `json:"stats"`
	Windows map[int][]string       `json:"windows"`
	Viewers int                    `json:"viewers"`
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}

	report := s.health.Check(c.Request.Context())
	code := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// handleStatus lists every registered service
func (s *Server) handleStatus(c *gin.Context) {
	resp := gin.H{"timestamp": time.Now()}
	if s.statuses != nil {
		resp["services"] = s.statuses.Snapshots()
	}
	if s.pipeline != nil {
		resp["pipeline_running"] = s.pipeline.Running()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) requirePipeline(c *gin.Context) bool {
	if s.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pipeline not available"})
		return false
	}
	return true
}

func (s *Server) pipelineView() PipelineView {
	view := PipelineView{
		Running: s.pipeline.Running(),
		Board:   s.pipeline.Board().Snapshot(),
		Stats:   s.pipeline.Stats(),
		Windows: s.pipeline.Windows(),
		Viewers: s.hub.ClientCount(),
	}
	if id, err := s.pipeline.Session(); err == nil {
		view.Session = id
	}
	return view
}

// handleGetPipeline returns the board, counters and smoothing windows
func (s *Server) handleGetPipeline(c *gin.Context) {
	if !s.requirePipeline(c) {
		return
	}
	c.JSON(http.StatusOK, s.pipelineView())
}

// handleStartPipeline starts detection
func (s *Server) handleStartPipeline(c *gin.Context) {
	if !s.requirePipeline(c) {
		return
	}

	if err := s.pipeline.Start(c.Request.Context()); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		s.LogError("Failed to start pipeline", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.pipelineView())
}

// handleStopPipeline stops detection; stopping an idle pipeline succeeds
func (s *Server) handleStopPipeline(c *gin.Context) {
	if !s.requirePipeline(c) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), stopTimeout)
	defer cancel()

	if err := s.pipeline.Stop(ctx); err != nil {
		s.LogError("Failed to stop pipeline", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.pipelineView())
}

func (s *Server) requireSessions(c *gin.Context) bool {
	if s.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session recording is disabled"})
		return false
	}
	return true
}

// sessionID validates the :id path parameter
func sessionID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return "", false
	}
	return id.String(), true
}

// queryInt reads a non-negative integer query parameter
func queryInt(c *gin.Context, key string, def, max int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key})
		return 0, false
	}
	if max > 0 && n > max {
		n = max
	}
	return n, true
}

// handleListSessions lists recorded sessions, newest first
func (s *Server) handleListSessions(c *gin.Context) {
	if !s.requireSessions(c) {
		return
	}
	limit, ok := queryInt(c, "limit", defaultPageSize, maxPageSize)
	if !ok {
		return
	}

	sessions, err := s.sessions.ListSessions(c.Request.Context(), limit)
	if err != nil {
		s.LogError("Failed to list sessions", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	if sessions == nil {
		sessions = []state.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// handleGetSession returns one session
func (s *Server) handleGetSession(c *gin.Context) {
	if !s.requireSessions(c) {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := s.sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleSessionResults pages through the results of one session
func (s *Server) handleSessionResults(c *gin.Context) {
	if !s.requireSessions(c) {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultPageSize, maxPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0, 0)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := s.sessions.GetSession(ctx, id); err != nil {
		s.sessionError(c, err)
		return
	}

	results, err := s.sessions.ListResults(ctx, id, limit, offset)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	if results == nil {
		results = []pipeline.Result{}
	}
	c.JSON(http.StatusOK, gin.H{
		"session": id,
		"results": results,
		"count":   len(results),
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) sessionError(c *gin.Context, err error) {
	if errors.Is(err, state.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	s.LogError("Session query failed", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Session query failed"})
}
