package domain

import "time"

// Config is the complete server configuration.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Store       StoreConfig     `mapstructure:"store"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	SQLite      SQLiteConfig    `mapstructure:"sqlite"`
	Reference   ReferenceConfig `mapstructure:"reference"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Admin       AdminConfig     `mapstructure:"admin"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TurnTimeout  time.Duration `mapstructure:"turn_timeout"`
}

// StoreConfig selects the session store backend: memory, sqlite, redis
// or postgres.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig configures the Postgres pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// SQLiteConfig configures the embedded session store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ReferenceConfig points at the versioned corpus directory.
type ReferenceConfig struct {
	Dir     string `mapstructure:"dir"`
	Version string `mapstructure:"version"`
}

// EngineConfig holds tunable engine thresholds. The reference corpus may
// override the scoring points; these are the fallbacks.
type EngineConfig struct {
	KeywordPoints   float64 `mapstructure:"keyword_points"`
	PhrasePoints    float64 `mapstructure:"phrase_points"`
	NegativePenalty float64 `mapstructure:"negative_penalty"`

	CandidateTopK      int     `mapstructure:"candidate_top_k"`
	CandidateMinScore  float64 `mapstructure:"candidate_min_score"`
	SeverityWeightStep float64 `mapstructure:"severity_weight_step"`

	MaxQuestions         int     `mapstructure:"max_questions"`
	HighConfidenceScore  float64 `mapstructure:"high_confidence_score"`
	MinSpecialtyScoreGap float64 `mapstructure:"min_specialty_score_gap"`

	SessionLockTTL time.Duration `mapstructure:"session_lock_ttl"`
	MaxSessionLocks int          `mapstructure:"max_session_locks"`
}

// AdminConfig guards the admin endpoints. Empty key disables them.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
