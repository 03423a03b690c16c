// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter that translates HTTP requests to application
// service calls; authentication happens upstream, the adapter only reads
// the tenant the gateway resolved.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/application/service"
	"github.com/nordwind/parkoffice/internal/shapefile"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		MaxUploadSize: 50 * 1024 * 1024,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     *zap.Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	corrections service.CorrectionService,
	history service.HistoryService,
	export service.ExportService,
	parser *shapefile.Parser,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(corrections, history, export, parser, config.MaxUploadSize, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api")
	api.Use(tenantMiddleware())
	{
		invoices := api.Group("/invoices")
		{
			invoices.POST("/:id/partial-cancellation", s.handlers.CreatePartialCancellation)
			invoices.POST("/:id/correction", s.handlers.CreateCorrectionInvoice)
			invoices.POST("/:id/cancellation", s.handlers.CreateFullCancellation)
			invoices.GET("/:id/corrections", s.handlers.GetCorrectionHistory)
			invoices.GET("/:id/correction-report", s.handlers.DownloadCorrectionReport)
		}
		api.POST("/shapefiles/parse", s.handlers.ParseShapefile)
	}
}

// tenantMiddleware reads the tenant resolved by the upstream gateway. All
// API routes require it; the handler layer never trusts tenant ids from the
// request body.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := parseTenantHeader(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "X-Tenant-ID Header fehlt oder ist ungültig",
			})
			return
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

// Start starts the HTTP server (non-blocking).
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
