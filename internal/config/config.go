package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pre-triage-server/internal/domain"
)

// Manager loads and validates server configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment and defaults
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pre-triage-server/")

	viper.SetEnvPrefix("TRIAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars suffice
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.turn_timeout", "10s")

	// Session store defaults
	viper.SetDefault("store.backend", "memory")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "pre_triage")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.min_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Redis defaults
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.session_ttl", "24h")

	// SQLite defaults
	viper.SetDefault("sqlite.path", "triage_sessions.db")

	// Reference corpus defaults
	viper.SetDefault("reference.dir", "data")
	viper.SetDefault("reference.version", "")

	// Engine defaults; the corpus scoring block overrides the points
	viper.SetDefault("engine.keyword_points", 3.0)
	viper.SetDefault("engine.phrase_points", 5.0)
	viper.SetDefault("engine.negative_penalty", -4.0)
	viper.SetDefault("engine.candidate_top_k", 5)
	viper.SetDefault("engine.candidate_min_score", 0.05)
	viper.SetDefault("engine.severity_weight_step", 0.25)
	viper.SetDefault("engine.max_questions", 6)
	viper.SetDefault("engine.high_confidence_score", 0.45)
	viper.SetDefault("engine.min_specialty_score_gap", 2.0)
	viper.SetDefault("engine.session_lock_ttl", "10m")
	viper.SetDefault("engine.max_session_locks", 4096)

	// Admin defaults; empty key disables the admin surface
	viper.SetDefault("admin.api_key", "")

	// Rate limit defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.rps", 5.0)
	viper.SetDefault("rate_limit.burst", 10)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetEngineConfig returns engine threshold configuration
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Store.Backend {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("invalid store backend: %s", config.Store.Backend)
	}

	if config.Store.Backend == "postgres" {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}
	if config.Store.Backend == "redis" && config.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if config.Store.Backend == "sqlite" && config.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	if config.Reference.Dir == "" {
		return fmt.Errorf("reference data directory is required")
	}

	if config.Engine.MaxQuestions <= 0 {
		return fmt.Errorf("engine max_questions must be positive: %d", config.Engine.MaxQuestions)
	}
	if config.Engine.CandidateTopK <= 0 {
		return fmt.Errorf("engine candidate_top_k must be positive: %d", config.Engine.CandidateTopK)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Redis.URL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}
