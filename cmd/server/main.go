package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pre-triage-server/internal/api"
	"github.com/pre-triage-server/internal/config"
	"github.com/pre-triage-server/internal/database"
	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/repository"
	"github.com/pre-triage-server/internal/service"
	"github.com/pre-triage-server/internal/session"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := reference.Load(cfg.Reference.Dir, logger)
	if err != nil {
		logger.Fatalf("Failed to load reference corpus: %v", err)
	}

	store, events, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize session store: %v", err)
	}
	defer cleanup()

	orchestrator := service.NewOrchestrator(rt, &cfg.Engine, store, events, logger)
	server := api.NewServer(cfg, orchestrator, store, events, rt, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"backend": cfg.Store.Backend,
		"corpus":  rt.Version,
	}).Info("Starting pre-triage server")

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	return logger
}

// buildStores wires the configured session backend. The returned cleanup
// closes whatever the backend opened.
func buildStores(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (domain.SessionStore, domain.EventStore, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		logger.Info("Using in-memory session store")
		return session.NewMemoryStore(), session.NewMemoryEventStore(), func() {}, nil

	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.WithField("path", cfg.SQLite.Path).Info("Using SQLite session store")
		return store, store, func() { store.Close() }, nil

	case "redis":
		store, err := session.NewRedisStore(cfg.Redis.URL, cfg.Redis.SessionTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.WithField("ttl", cfg.Redis.SessionTTL).Info("Using Redis session store")
		return store, store, func() { store.Close() }, nil

	case "postgres":
		db, err := database.NewConnection(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			Database:    cfg.Database.Database,
			Username:    cfg.Database.Username,
			Password:    cfg.Database.Password,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    int32(cfg.Database.MaxOpenConns),
			MinConns:    int32(cfg.Database.MinIdleConns),
			MaxConnLife: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		if err := runMigrations(cfg.Database, logger); err != nil {
			db.Close()
			return nil, nil, nil, err
		}

		store := repository.NewSessionRepository(db.SQL(), logger)
		events := repository.NewEventRepository(db.SQL(), logger)
		logger.WithField("database", cfg.Database.Database).Info("Using PostgreSQL session store")
		return store, events, func() { db.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func runMigrations(cfg domain.DatabaseConfig, logger *logrus.Logger) error {
	databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	runner, err := database.NewMigrationRunner(databaseURL, cfg.MigrationsPath, logger)
	if err != nil {
		return fmt.Errorf("creating migration runner: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
