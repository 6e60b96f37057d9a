// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/greenmind-iot/hub/api"
	"github.com/greenmind-iot/hub/internal/auth"
	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/database"
	"github.com/greenmind-iot/hub/internal/hubservice"
	"github.com/greenmind-iot/hub/internal/monitoring"
	"github.com/greenmind-iot/hub/internal/partner"
	"github.com/greenmind-iot/hub/internal/ratelimit"
	"github.com/greenmind-iot/hub/internal/repository/postgres"
	"github.com/greenmind-iot/hub/internal/rollup"
	"github.com/greenmind-iot/hub/internal/sweep"
	"github.com/greenmind-iot/hub/internal/token"
	"github.com/robfig/cron/v3"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	db         database.DB
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	scheduler  *cron.Cron
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start wires all components and begins listening for requests
func (s *Server) Start() error {
	s.db = initAppDB(s.config.Database)
	s.monitoring = monitoring.NewService(monitoring.Config{
		LogLevel: s.config.Monitoring.LogLevel,
	})

	redisClient := ratelimit.NewRedisClient(s.config.Redis)
	limiter := ratelimit.New(redisClient, s.config.RateLimit)

	tokens, err := token.NewService(s.config.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	partnerClient := partner.NewClient(s.config.Partner)

	devices := postgres.NewDeviceRepository(s.db)
	users := postgres.NewUserRepository(s.db)
	telemetry := postgres.NewTelemetryRepository(s.db)
	tasks := postgres.NewTaskRepository(s.db)
	sweepStore := postgres.NewSweepStore(s.db)

	s.hubservice = hubservice.New(devices, users, telemetry, tasks, sweepStore, s.config.Retention)
	if err := s.hubservice.Validate(); err != nil {
		return err
	}
	gateway := auth.NewGateway(devices, limiter, tokens, partnerClient)

	s.setupSweepHandlers()
	s.startRollupSchedule()

	router := api.NewRouter(s.hubservice, gateway, tokens, limiter)
	router.SetHealthCheck(s.handleHealth())

	s.srv.Handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		handlers.CombinedLoggingHandler(os.Stdout, router),
	)

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if err := s.db.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing database: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a health check handler backed by a database ping
func (s *Server) handleHealth() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := s.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

// startRollupSchedule arms the nightly aggregation cycle
func (s *Server) startRollupSchedule() {
	if !s.config.Retention.RollupEnabled {
		nuts.L.Infof("[Server] Rollup schedule disabled")
		return
	}

	engine := rollup.New(postgres.NewRollupStore(s.db), s.config.Retention)
	s.scheduler = cron.New()
	_, err := s.scheduler.AddFunc(s.config.Retention.RollupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := engine.RunCycle(ctx); err != nil {
			nuts.L.Errorf("[Server] Rollup cycle failed: %v", err)
			return
		}
		s.monitoring.RecordEvent("rollup_cycle", nil)
	})
	if err != nil {
		nuts.L.Fatalf("[Server] Invalid rollup schedule %q: %v", s.config.Retention.RollupSchedule, err)
	}
	s.scheduler.Start()
	nuts.L.Infof("[Server] Rollup scheduled: %s", s.config.Retention.RollupSchedule)
}

func (s *Server) setupSweepHandlers() {
	// Handle device purge events
	s.hubservice.Sweep.OnSweep(sweep.EventDeviceDeleted, func(deviceID string) {
		nuts.L.Infof("[Sweep] Device %s and all associated data deleted", deviceID)
		s.monitoring.RecordEvent("device_deletion", map[string]string{
			"device_id": deviceID,
		})
	})

	// Handle abandoned decommissions
	s.hubservice.Sweep.OnSweep(sweep.EventGiveUp, func(deviceID string) {
		nuts.L.Warnf("[Sweep] Device %s never acknowledged its decommission order", deviceID)
		s.monitoring.RecordEvent("device_deletion_abandoned", map[string]string{
			"device_id": deviceID,
		})
	})
}

func initAppDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewPostgresDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}

	if err := postgres.InitializeSchema(wrappedDB); err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize schema: %v", err)
	}
	return wrappedDB
}
