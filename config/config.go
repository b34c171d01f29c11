package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is prepended to every environment variable override.
const DefaultEnvPrefix = "JOBMESH"

// Config is the complete runtime configuration. Values resolve in three
// layers: built-in defaults, then the YAML config file, then environment
// variables (JOBMESH_SECTION_FIELD).
type Config struct {
	// Environment names the deployment environment (development, production).
	Environment string `yaml:"environment" env:"ENVIRONMENT"`

	Server  ServerConfig  `yaml:"server" env:"SERVER"`
	Auth    AuthConfig    `yaml:"auth" env:"AUTH"`
	Engine  EngineConfig  `yaml:"engine" env:"ENGINE"`
	Model   ModelConfig   `yaml:"model" env:"MODEL"`
	Session SessionConfig `yaml:"session" env:"SESSION"`
	History HistoryConfig `yaml:"history" env:"HISTORY"`
	Sources SourcesConfig `yaml:"sources" env:"SOURCES"`
	Log     LogConfig     `yaml:"log" env:"LOG"`
}

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" env:"ADDR"`

	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// CORSOrigins lists the allowed cross-origin request origins.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS"`

	// RateLimitRPS is the sustained per-client request rate; RateLimitBurst
	// the burst allowance. Zero RPS disables rate limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// AuthConfig tunes the bearer token authentication of the API.
type AuthConfig struct {
	// Enabled toggles JWT verification on protected routes.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Secret signs and verifies HS256 tokens. Required when Enabled.
	Secret string `yaml:"secret" env:"SECRET"`

	// TokenTTL bounds the lifetime of issued tokens.
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

// EngineConfig tunes workflow execution.
type EngineConfig struct {
	MaxConcurrentRuns int           `yaml:"max_concurrent_runs" env:"MAX_CONCURRENT_RUNS"`
	EventBufferSize   int           `yaml:"event_buffer_size" env:"EVENT_BUFFER_SIZE"`
	StepBudget        int           `yaml:"step_budget" env:"STEP_BUDGET"`
	ErrorBudget       int           `yaml:"error_budget" env:"ERROR_BUDGET"`
	StepTimeout       time.Duration `yaml:"step_timeout" env:"STEP_TIMEOUT"`

	// BestEffortComprehensive relaxes the comprehensive workflow's
	// completion predicate to the final rewriter agent.
	BestEffortComprehensive bool `yaml:"best_effort_comprehensive" env:"BEST_EFFORT_COMPREHENSIVE"`
}

// ModelConfig selects and tunes the language model provider.
type ModelConfig struct {
	// Provider is one of "anthropic", "openai" or "mock".
	Provider string `yaml:"provider" env:"PROVIDER"`

	// Name overrides the provider's default model identifier.
	Name string `yaml:"name" env:"NAME"`

	// APIKey authenticates against the provider. Falls back to the
	// provider SDK's own environment variables when empty.
	APIKey string `yaml:"api_key" env:"API_KEY"`

	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend" env:"BACKEND"`

	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig tunes the redis session backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// HistoryConfig selects the transcript persistence backend.
type HistoryConfig struct {
	// Backend is "memory", "postgres" or "sqlite".
	Backend string `yaml:"backend" env:"BACKEND"`

	// PostgresDSN configures the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`

	// SQLitePath configures the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// SourcesConfig holds the job board credentials. Boards without a credential
// are not queried; with no credential at all the engine falls back to a
// static demo source.
type SourcesConfig struct {
	StepStoneToken   string `yaml:"stepstone_token" env:"STEPSTONE_TOKEN"`
	GoogleJobsAPIKey string `yaml:"google_jobs_api_key" env:"GOOGLE_JOBS_API_KEY"`
}

// LogConfig tunes structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" env:"LEVEL"`

	// Format is "json" or "text".
	Format string `yaml:"format" env:"FORMAT"`

	// AddSource includes file:line of the log call site.
	AddSource bool `yaml:"add_source" env:"ADD_SOURCE"`
}

// Default returns the built-in defaults, suitable for local development.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Engine: EngineConfig{
			MaxConcurrentRuns: 10,
			EventBufferSize:   100,
			StepBudget:        50,
			ErrorBudget:       5,
			StepTimeout:       2 * time.Minute,
		},
		Model: ModelConfig{
			Provider:    "mock",
			Temperature: 0.3,
			MaxTokens:   4096,
		},
		Session: SessionConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		History: HistoryConfig{
			Backend:    "memory",
			SQLitePath: "jobmesh.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Options holds overrides passed to Load().
type Options struct {
	// Path points to a YAML config file. A missing file is not an error;
	// the defaults and environment apply.
	Path string

	// EnvPrefix replaces the default JOBMESH environment prefix.
	EnvPrefix string
}

// Load resolves the configuration: defaults, then the YAML file, then
// environment overrides, then validation.
func Load(optFns ...func(o *Options)) (*Config, error) {
	opts := Options{
		EnvPrefix: DefaultEnvPrefix,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := Default()

	if opts.Path != "" {
		if err := loadFile(cfg, opts.Path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(reflect.ValueOf(cfg).Elem(), opts.EnvPrefix); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the configuration targets production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server addr is empty")
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		errs = append(errs, "auth is enabled but no secret is set")
	}

	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, "rate limit rps must not be negative")
	}

	if c.Engine.MaxConcurrentRuns <= 0 {
		errs = append(errs, "max_concurrent_runs must be positive")
	}

	if c.Engine.StepBudget < 0 || c.Engine.ErrorBudget < 0 {
		errs = append(errs, "engine budgets must not be negative")
	}

	switch c.Model.Provider {
	case "anthropic", "openai", "mock":
	default:
		errs = append(errs, fmt.Sprintf("unknown model provider %q", c.Model.Provider))
	}

	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("unknown session backend %q", c.Session.Backend))
	}

	switch c.History.Backend {
	case "memory", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown history backend %q", c.History.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}

	return nil
}

// loadFile merges a YAML file into cfg. A missing file leaves cfg untouched.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyEnv walks the struct and overrides fields from environment variables
// named by the concatenated env tags, e.g. JOBMESH_SERVER_ADDR.
func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)

		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}

		key := prefix + "_" + tag

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, key); err != nil {
				return err
			}

			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}

		if err := setField(field, raw); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	return nil
}

// setField parses raw into the field's type. Durations use Go duration
// syntax; string slices split on commas.
func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}

			field.SetInt(int64(d))

			return nil
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}

		field.SetInt(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}

		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}

		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}

	return nil
}
