package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Futsu-coder/Emotion-Detection/internal/config"
	"github.com/Futsu-coder/Emotion-Detection/internal/health"
	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/service"
	"github.com/Futsu-coder/Emotion-Detection/internal/state"
)

// PipelineControl is the controller surface the API drives
type PipelineControl interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
	Session() (string, error)
	Board() *pipeline.Board
	Stats() pipeline.Stats
	Windows() map[int][]string
}

// SessionStore serves recorded sessions
type SessionStore interface {
	ListSessions(ctx context.Context, limit int) ([]state.Session, error)
	GetSession(ctx context.Context, id string) (*state.Session, error)
	ListResults(ctx context.Context, sessionID string, limit, offset int) ([]pipeline.Result, error)
}

// HealthReporter produces the health report
type HealthReporter interface {
	Check(ctx context.Context) health.Report
}

// StatusReporter lists service statuses
type StatusReporter interface {
	Snapshots() []service.Snapshot
}

// Server represents the web server service
type Server struct {
	*service.ServiceBase
	config     *config.WebConfig
	logger     *logger.Logger
	httpServer *http.Server
	listener   net.Listener
	router     *gin.Engine
	hub        *Hub
	routesOnce sync.Once

	pipeline PipelineControl // Optional pipeline controller
	sessions SessionStore    // Optional session history
	health   HealthReporter  // Optional health manager
	statuses StatusReporter  // Optional service manager
}

// NewServer creates a new web server service
func NewServer(cfg *config.WebConfig, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	return &Server{
		ServiceBase: service.NewServiceBase("web-server", log),
		config:      cfg,
		logger:      log,
		router:      router,
		hub:         NewHub(log),
	}
}

// SetPipeline sets the pipeline controller
func (s *Server) SetPipeline(p PipelineControl) {
	s.pipeline = p
}

// SetSessionStore sets the session history store
func (s *Server) SetSessionStore(store SessionStore) {
	s.sessions = store
}

// SetHealth sets the health reporter
func (s *Server) SetHealth(h HealthReporter) {
	s.health = h
}

// SetStatusReporter sets the service status source
func (s *Server) SetStatusReporter(r StatusReporter) {
	s.statuses = r
}

// Hub returns the websocket hub; register it as a pipeline result sink
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with every route registered
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.setupRoutes)
	return s.router
}

// Start starts the web server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.LogInfo("Web server is disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	// WriteTimeout stays disabled for the websocket stream.
	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.LogError("Web server error", err, "address", ln.Addr().String())
		}
	}()

	s.LogInfo("Web server started", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops the web server
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}

	s.LogInfo("Stopping web server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)

		control := api.Group("/pipeline")
		{
			control.GET("", s.handleGetPipeline)
			control.POST("/start", s.handleStartPipeline)
			control.POST("/stop", s.handleStopPipeline)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", s.handleListSessions)
			sessions.GET("/:id", s.handleGetSession)
			sessions.GET("/:id/results", s.handleSessionResults)
		}
	}

	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// ginLogger creates a Gin middleware that uses our logger
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware creates a CORS middleware for local network access
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
