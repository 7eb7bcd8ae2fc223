// Package server runs the kotoba HTTP server. It owns the DefraDB
// container lifecycle - starting it on server start and stopping it on
// server shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kotoba-app/kotoba/internal/analyze"
	"github.com/kotoba-app/kotoba/internal/api"
	"github.com/kotoba-app/kotoba/internal/config"
	"github.com/kotoba-app/kotoba/internal/defra"
	"github.com/kotoba-app/kotoba/internal/history"
	"github.com/kotoba-app/kotoba/internal/home"
	"github.com/kotoba-app/kotoba/internal/ingest"
	"github.com/kotoba-app/kotoba/internal/integrate"
	"github.com/kotoba-app/kotoba/internal/reading"
	"github.com/kotoba-app/kotoba/internal/schema"
	"github.com/kotoba-app/kotoba/internal/server/endpoints"
	"github.com/kotoba-app/kotoba/internal/svcctx"
)

// Server is the main kotoba HTTP server.
type Server struct {
	httpServer   *http.Server
	defraManager *defra.DockerManager
	defraClient  *defra.Client
	configMgr    *config.Manager
	homeDir      *home.Dir
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// DefraDataPath is the path to persist DefraDB data
	DefraDataPath string
	// DefraConfig holds DefraDB container settings
	DefraConfig defra.DockerConfig
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the application home directory
	Home *home.Dir
	// SwaggerSpecPath points at the generated OpenAPI spec
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.DefraDataPath != "" {
		cfg.DefraConfig.DataPath = cfg.DefraDataPath
	}

	defraManager, err := defra.NewDockerManager(cfg.DefraConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create defra manager: %w", err)
	}

	s := &Server{
		defraManager: defraManager,
		configMgr:    cfg.ConfigManager,
		homeDir:      cfg.Home,
		logger:       cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		DefraManager:    defraManager,
		SwaggerSpecPath: cfg.SwaggerSpecPath,
	}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analysis and rebuild calls run long
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and DefraDB.
// It blocks until the context is cancelled or an error occurs.
// If an existing DefraDB container exists, it validates the configuration matches.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.defraManager.ValidateExisting(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("existing DefraDB container incompatible: %w", err)
	}

	s.logger.Info("starting DefraDB")
	if err := s.defraManager.Start(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to start DefraDB: %w", err)
	}

	s.defraClient = defra.NewClient(s.defraManager.URL())

	if err := s.defraClient.HealthCheck(ctx); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("DefraDB health check failed: %w", err)
	}
	s.logger.Info("DefraDB is ready", "url", s.defraManager.URL())

	s.logger.Info("initializing schemas")
	if err := schema.Initialize(ctx, s.defraClient, s.logger); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	if err := s.buildServices(); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("service wiring failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// buildServices wires the domain services once DefraDB is reachable.
func (s *Server) buildServices() error {
	cfg := config.DefaultConfig()
	if s.configMgr != nil {
		cfg = s.configMgr.Get()
	}
	integrateCfg := cfg.Integrate.Normalized()

	historyStore := history.NewStore(s.defraClient, integrateCfg.PageSize, s.logger)

	readingAnalyzer, err := reading.NewAnalyzer()
	if err != nil {
		return fmt.Errorf("reading analyzer: %w", err)
	}

	analyzer := s.buildAnalyzer(cfg)
	batchDelay := time.Duration(integrateCfg.WriteBatchDelay) * time.Millisecond

	vocabulary := integrate.NewService(integrate.Config{
		Kind:        integrate.KindVocabulary,
		Store:       historyStore,
		Client:      s.defraClient,
		Reading:     readingAnalyzer,
		PageSize:    integrateCfg.PageSize,
		BatchSize:   integrateCfg.WriteBatchSize,
		BatchDelay:  batchDelay,
		MaxExamples: integrateCfg.MaxExamples,
		Logger:      s.logger,
	})
	structures := integrate.NewService(integrate.Config{
		Kind:        integrate.KindStructure,
		Store:       historyStore,
		Client:      s.defraClient,
		PageSize:    integrateCfg.PageSize,
		BatchSize:   integrateCfg.WriteBatchSize,
		BatchDelay:  batchDelay,
		MaxExamples: integrateCfg.MaxExamples,
		Logger:      s.logger,
	})

	s.services = &svcctx.Services{
		DefraClient: s.defraClient,
		Config:      s.configMgr,
		Logger:      s.logger,
		Home:        s.homeDir,
		History:     historyStore,
		Vocabulary:  vocabulary,
		Structures:  structures,
		Analyzer:    analyzer,
		Ingestor:    ingest.New(analyzer, historyStore, s.logger),
		Reading:     readingAnalyzer,
	}
	return nil
}

// buildAnalyzer picks the analysis backend from config. An unset or
// unresolved API key falls back to the mock so the server still boots for
// local pipeline work.
func (s *Server) buildAnalyzer(cfg *config.Config) analyze.Analyzer {
	if cfg.Analyzer.Provider == analyze.MockName {
		return analyze.NewMock()
	}

	apiKey := cfg.ResolveAPIKey(cfg.Analyzer.Provider)
	if apiKey == "" {
		s.logger.Warn("no analyzer API key configured, using mock analyzer",
			"provider", cfg.Analyzer.Provider)
		return analyze.NewMock()
	}

	return analyze.NewOpenAIAnalyzer(analyze.OpenAIConfig{
		APIKey:     apiKey,
		Model:      cfg.Analyzer.Model,
		BaseURL:    cfg.Analyzer.BaseURL,
		RateLimit:  cfg.Analyzer.RateLimit,
		MaxRetries: cfg.Analyzer.MaxRetries,
		Logger:     s.logger,
	})
}

// shutdown performs graceful shutdown of both HTTP server and DefraDB.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.logger.Info("stopping DefraDB")
	if err := s.defraManager.Stop(shutdownCtx); err != nil {
		s.logger.Error("DefraDB stop error", "error", err)
	}

	if err := s.defraManager.Close(); err != nil {
		s.logger.Error("DefraDB manager close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// DefraClient returns the DefraDB client.
// Returns nil if the server hasn't started yet.
func (s *Server) DefraClient() *defra.Client {
	return s.defraClient
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the services aren't wired yet.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.defraClient == nil || s.services == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
