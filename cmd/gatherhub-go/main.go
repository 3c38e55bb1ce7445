// Package main is the entrypoint for the gatherhub-go server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-go/internal/checkins"
	"github.com/gatherhub/gatherhub-go/internal/config"
	"github.com/gatherhub/gatherhub-go/internal/events"
	"github.com/gatherhub/gatherhub-go/internal/identity"
	"github.com/gatherhub/gatherhub-go/internal/lifecycle"
	"github.com/gatherhub/gatherhub-go/internal/rsvps"
	"github.com/gatherhub/gatherhub-go/internal/server"
	"github.com/gatherhub/gatherhub-go/internal/store"

	// Register store drivers
	_ "github.com/gatherhub/gatherhub-go/internal/store/memory"
	_ "github.com/gatherhub/gatherhub-go/internal/store/sqlite"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory or sqlite (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load config with precedence: defaults -> TOML file -> CLI flags
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:   listenAddr,
			StoreDriver:  storeDriver,
			LoggingLevel: loggingLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create logger with configured level
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Log effective config with secrets redacted
	logger.Info("effective configuration", "config", cfg.Redacted())

	// Create the store from the configured driver
	driverCfg := &store.DriverConfig{Driver: cfg.Store.Driver}
	if err := config.Decode(cfg.Store.Options, driverCfg); err != nil {
		logger.Error("failed to decode store options", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	driverCfg.Driver = cfg.Store.Driver

	st, err := store.New(driverCfg)
	if err != nil {
		logger.Error("failed to create store", "driver", cfg.Store.Driver, "available", store.AvailableDrivers(), "error", err)
		os.Exit(1)
	}
	if err := st.Init(context.Background()); err != nil {
		logger.Error("failed to initialize store", "driver", st.Name(), "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", st.Name())

	// Create identity components
	sessionRepo := identity.NewMemorySessionRepo()
	userAuth := identity.NewUserAuth()

	// Bootstrap host account when configured
	if err := bootstrapHost(context.Background(), st, userAuth, cfg, logger); err != nil {
		logger.Error("failed to bootstrap host account", "error", err)
		os.Exit(1)
	}

	// Create domain services
	eventsSvc := events.New(st, nil, logger)
	rsvpsSvc := rsvps.New(st, nil, logger)
	checkinsSvc := checkins.New(st, nil, logger)

	// Create the lifecycle engine and schedule its sweeps
	engine := lifecycle.New(st, nil, logger)
	scheduler := lifecycle.NewScheduler(logger)
	sweepInterval := time.Duration(cfg.Lifecycle.SweepIntervalSeconds) * time.Second
	scheduler.Every(sweepInterval, lifecycle.Sweep{Name: "activate", Run: engine.Activate})
	scheduler.Every(sweepInterval, lifecycle.Sweep{Name: "close", Run: engine.Close})
	scheduler.DailyAtMidnightUTC(lifecycle.Sweep{Name: "checkin-preopen", Run: engine.EnableCheckInForToday})

	// Create and start server
	srv, err := server.New(cfg, logger, &server.Deps{
		Store:       st,
		SessionRepo: sessionRepo,
		UserAuth:    userAuth,
		Events:      eventsSvc,
		Rsvps:       rsvpsSvc,
		Checkins:    checkinsSvc,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Stop sweeps first so no status writes race the store teardown
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// bootstrapHost seeds a host account from config when no account with that
// email exists yet. Safe to run on every start.
func bootstrapHost(ctx context.Context, st store.Store, auth *identity.UserAuth, cfg *config.Config, logger *slog.Logger) error {
	bh := cfg.Server.BootstrapHost
	if bh.Email == "" || bh.Password == "" {
		return nil
	}

	if _, err := st.GetUserByEmail(ctx, bh.Email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(bh.Password)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	user := &store.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         bh.Name,
		Email:        bh.Email,
		PasswordHash: hash,
		Role:         identity.RoleHost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return err
	}

	logger.Info("bootstrapped host account", "user_id", user.ID, "email", user.Email)
	return nil
}
