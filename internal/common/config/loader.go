// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (searched in the usual locations), merges
// config.<APP_ENVIRONMENT>.yaml over it and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", environmentName()))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path. A sibling
// config.<APP_ENVIRONMENT>.yaml is merged over it when present.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	overlay := filepath.Join(filepath.Dir(path), fmt.Sprintf("config.%s.yaml", environmentName()))
	if _, err := os.Stat(overlay); err == nil {
		v.SetConfigFile(overlay)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", overlay, err)
		}
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// QUERY_MAX_CONCURRENCY overrides query.max_concurrency and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func environmentName() string {
	if env := os.Getenv("APP_ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if used := v.ConfigFileUsed(); used != "" {
		resolvePaths(&cfg, filepath.Dir(used))
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found in the working directory, its
// parents or the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} references in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// resolvePaths makes relative file references relative to the config file.
func resolvePaths(cfg *Config, baseDir string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	cfg.Query.TemplatesFile = join(cfg.Query.TemplatesFile)
	for name, svc := range cfg.Services {
		svc.SchemaFile = join(svc.SchemaFile)
		cfg.Services[name] = svc
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crossquery"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = environmentName()
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Query defaults
	if cfg.Query.DefaultTimeout == 0 {
		cfg.Query.DefaultTimeout = 30000
	}
	if cfg.Query.MaxConcurrency == 0 {
		cfg.Query.MaxConcurrency = 4
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = HistoryBackendNone
	}
	if cfg.History.TTL == 0 {
		cfg.History.TTL = 7 * 24 * 3600
	}
	if cfg.History.MaxRuns == 0 {
		cfg.History.MaxRuns = 50
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Metrics.Textfile == "" {
		cfg.Metrics.Textfile = "crossquery.prom"
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = TraceExporterStdout
	}
	if cfg.Tracing.Output == "" {
		cfg.Tracing.Output = "stderr"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Query.TemplatesFile == "" {
		return fmt.Errorf("query.templates_file is required")
	}
	if cfg.Query.MaxConcurrency < 1 {
		return fmt.Errorf("query.max_concurrency must be at least 1")
	}
	if cfg.Query.DefaultTimeout < 0 {
		return fmt.Errorf("query.default_timeout must not be negative")
	}

	for name, svc := range cfg.Services {
		if svc.Enabled && svc.SchemaFile == "" {
			return fmt.Errorf("services.%s.schema_file is required when enabled", name)
		}
		if svc.Timeout < 0 {
			return fmt.Errorf("services.%s.timeout must not be negative", name)
		}
	}

	switch cfg.History.Backend {
	case HistoryBackendNone:
	case HistoryBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for redis history")
		}
	case HistoryBackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for postgres history")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for postgres history")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required for postgres history")
		}
	default:
		return fmt.Errorf("history.backend must be one of none, redis, postgres; got %q", cfg.History.Backend)
	}

	switch cfg.Tracing.Exporter {
	case TraceExporterStdout:
	case TraceExporterJaeger:
		if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required for the jaeger exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter must be stdout or jaeger; got %q", cfg.Tracing.Exporter)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// ServiceTimeout is the per-call timeout for a service, falling back to
// query.default_timeout.
func (c *Config) ServiceTimeout(name string) time.Duration {
	if svc, ok := c.Services[name]; ok && svc.Timeout > 0 {
		return GetDuration(svc.Timeout)
	}
	return GetDuration(c.Query.DefaultTimeout)
}

// MaxServiceTimeout is the longest per-call timeout of any service. The
// shared HTTP client uses it as its ceiling so per-call deadlines decide.
func (c *Config) MaxServiceTimeout() time.Duration {
	longest := GetDuration(c.Query.DefaultTimeout)
	for name := range c.Services {
		if d := c.ServiceTimeout(name); d > longest {
			longest = d
		}
	}
	return longest
}

// IsServiceEnabled reports whether a service is configured and enabled.
func (c *Config) IsServiceEnabled(name string) bool {
	svc, ok := c.Services[name]
	return ok && svc.Enabled
}
