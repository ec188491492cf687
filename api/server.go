package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/desqueeze-go/api/controllers"
	"github.com/moyoez/desqueeze-go/api/middlewares"
	"github.com/moyoez/desqueeze-go/api/models"
	"github.com/moyoez/desqueeze-go/api/notifyhub"
	"github.com/moyoez/desqueeze-go/tool"
)

// Server is the local control API driving the export controller.
type Server struct {
	port   int
	hub    *notifyhub.Hub
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

// NewServer creates a control API server on port. exporter must be set; hub may be nil
// to serve without the notify WebSocket.
func NewServer(port int, exporter models.Exporter, hub *notifyhub.Hub) *Server {
	models.SetController(exporter)
	return &Server{
		port: port,
		hub:  hub,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.AllowAllCORS())
	RegisterRoutes(engine, s.hub)
	return engine
}

// RegisterRoutes mounts the control API under /api/self/v1.
func RegisterRoutes(engine *gin.Engine, hub *notifyhub.Hub) {
	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus)
		self.GET("/queue", controllers.UserQueue)
		self.POST("/select-files", controllers.UserSelectFiles)       // queue local files by path
		self.POST("/select", controllers.UserSelect)                  // pick the current file
		self.POST("/export-selected", controllers.UserExportSelected) // 202, runs in background
		self.POST("/export-batch", controllers.UserExportBatch)       // 202, runs in background
		self.GET("/outcome", controllers.UserOutcomeGet)              // ?sessionId=
		self.GET("/config", controllers.UserConfigGet)
		self.PATCH("/config", controllers.UserConfigPatch)
		self.GET("/create-qr-code", controllers.GenerateQRCode) // QR code PNG for a download link
		self.GET("/probe", controllers.UserProbe)               // ICMP probe of the backend host
		if hub != nil {
			self.GET("/notify-ws", notifyhub.HandleNotifyWS(hub))
		}
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting control API on http://127.0.0.1:%d/api/self/v1", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
