// Package server wires the HTTP surface: backend construction, middleware,
// routes, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/agentfs/agentfs/internal/api/http"
	"github.com/agentfs/agentfs/internal/config"
	"github.com/agentfs/agentfs/internal/evict"
	"github.com/agentfs/agentfs/internal/monitoring"
	"github.com/agentfs/agentfs/internal/vfs"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	backend, err := buildBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	interceptor := evict.NewInterceptor(
		evict.WithTokenLimit(cfg.Eviction.TokenLimit),
		evict.WithLogger(logger),
	)
	handlers := apihttp.NewHandlers(cfg.Backend.Kind, backend, interceptor, metrics, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/tools", handlers.ListTools)
	router.POST("/tools/execute", handlers.ExecuteTool)
	router.POST("/tools/preview", handlers.PreviewTool)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		logger: logger,
	}, nil
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("starting agentfs service", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// buildBackend selects the storage substrate by explicit tag. The state
// backend is absent on purpose: it is constructed per turn by the agent
// loop that owns the files snapshot, never by a long-lived service.
func buildBackend(cfg config.BackendConfig) (vfs.Backend, error) {
	switch cfg.Kind {
	case "store":
		return vfs.NewStoreBackend(vfs.NewMemoryKV()), nil
	case "disk":
		return vfs.NewDiskBackend(cfg.DiskRoot), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q (want store or disk)", cfg.Kind)
	}
}
