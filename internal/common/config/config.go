// internal/common/config/config.go
package config

import (
	"fmt"

	"crossquery/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig                       `mapstructure:"app"`
	Logging  LoggingConfig                   `mapstructure:"logging"`
	Query    QueryConfig                     `mapstructure:"query"`
	Services map[string]models.ServiceConfig `mapstructure:"services"`
	History  HistoryConfig                   `mapstructure:"history"`
	Database DatabaseConfig                  `mapstructure:"database"`
	Metrics  MetricsConfig                   `mapstructure:"metrics"`
	Tracing  TracingConfig                   `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueryConfig drives template execution.
type QueryConfig struct {
	TemplatesFile  string `mapstructure:"templates_file"`
	DefaultTimeout int    `mapstructure:"default_timeout"` // milliseconds
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

const (
	HistoryBackendNone     = "none"
	HistoryBackendRedis    = "redis"
	HistoryBackendPostgres = "postgres"
)

// HistoryConfig selects where finished runs are recorded.
type HistoryConfig struct {
	Backend string `mapstructure:"backend"`
	TTL     int    `mapstructure:"ttl"` // seconds, redis only
	MaxRuns int    `mapstructure:"max_runs"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MetricsConfig controls the Prometheus textfile dump written after a run.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

const (
	TraceExporterStdout = "stdout"
	TraceExporterJaeger = "jaeger"
)

// TracingConfig controls span export. The stdout exporter writes JSON spans
// to Output ("stderr", "stdout" or a file path); the jaeger exporter posts
// to a collector at Endpoint.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
	Output   string `mapstructure:"output"`
	Endpoint string `mapstructure:"endpoint"`
}
