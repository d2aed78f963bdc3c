package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete AgentLink configuration.
type Config struct {
	// Registry configures the discovery service surface.
	Registry RegistryConfig `yaml:"registry" env:"REGISTRY"`

	// Resolution configures capability card fetching and caching.
	Resolution ResolutionConfig `yaml:"resolution" env:"RESOLUTION"`

	// Invocation configures the remote invocation client.
	Invocation InvocationConfig `yaml:"invocation" env:"INVOCATION"`

	// Controller configures the centralized controller topology.
	Controller ControllerConfig `yaml:"controller" env:"CONTROLLER"`

	// Chain configures peer-chain node behavior.
	Chain ChainConfig `yaml:"chain" env:"CHAIN"`

	// History configures the run-history store.
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// RegistryConfig configures the registry HTTP service and the
// directory clients pointing at it.
type RegistryConfig struct {
	// ListenAddr is where the registry service binds.
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	// BaseURL is where agents and peers reach the registry.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// WriteTimeout bounds response writes. Must cover a full
	// registration round-trip (the service fetches the card inline).
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// RPS rate-limits inbound service requests when > 0.
	RPS float64 `yaml:"rps" env:"RPS"`
	// Burst is the limiter burst size when RPS is enabled.
	Burst int `yaml:"burst" env:"BURST"`
}

// ResolutionConfig configures card fetching. Resolution calls are
// short; registration must fail fast when an agent is down.
type ResolutionConfig struct {
	// Timeout bounds one card fetch.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// CacheBackend selects the card cache for the peer-chain fallback
	// scan: "memory" or "redis". Register paths never use the cache.
	CacheBackend string `yaml:"cache_backend" env:"CACHE_BACKEND"`
	// CacheTTL bounds cached card age.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// Redis configures the shared card cache when CacheBackend is
	// "redis".
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig configures the Redis card-cache backend.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	KeyPrefix    string `yaml:"key_prefix" env:"KEY_PREFIX"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// InvocationConfig configures the remote invocation client.
// Invocation calls are long: the remote agent may drive model
// inference before replying.
type InvocationConfig struct {
	// Timeout bounds one invocation.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RPS rate-limits outbound invocations when > 0.
	RPS float64 `yaml:"rps" env:"RPS"`
	// Burst is the limiter burst size when RPS is enabled.
	Burst int `yaml:"burst" env:"BURST"`
}

// ControllerConfig configures the centralized controller topology.
type ControllerConfig struct {
	// MaxTurns bounds the decision loop.
	MaxTurns int `yaml:"max_turns" env:"MAX_TURNS"`
	// TerminationToken signals explicit completion.
	TerminationToken string `yaml:"termination_token" env:"TERMINATION_TOKEN"`
	// PromptTokenBudget trims the oldest trace turns out of the
	// decision prompt. Zero disables trimming.
	PromptTokenBudget int `yaml:"prompt_token_budget" env:"PROMPT_TOKEN_BUDGET"`
	// TokenEncoding is the tiktoken encoding used for budget counting.
	TokenEncoding string `yaml:"token_encoding" env:"TOKEN_ENCODING"`
}

// ChainConfig configures peer-chain node behavior.
type ChainConfig struct {
	// MaxHops bounds chain depth, the guard against delegation cycles.
	MaxHops int `yaml:"max_hops" env:"MAX_HOPS"`
	// ScanConcurrency bounds the fallback card scan.
	ScanConcurrency int `yaml:"scan_concurrency" env:"SCAN_CONCURRENCY"`
}

// HistoryConfig configures the run-history store. It archives reports
// of finished topology runs; it is not registry persistence.
type HistoryConfig struct {
	// Enabled turns run archiving on.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Driver selects the database: sqlite, mysql, or postgres.
	Driver string `yaml:"driver" env:"DRIVER"`
	// Host, Port, User, Password, Name build the DSN for mysql and
	// postgres. For sqlite, Name is the database file path.
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
	// Pool settings.
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN returns the history store's connection string for its driver.
func (h *HistoryConfig) DSN() string {
	switch h.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			h.Host, h.Port, h.User, h.Password, h.Name, h.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			h.User, h.Password, h.Host, h.Port, h.Name,
		)
	case "sqlite":
		return h.Name
	default:
		return ""
	}
}

// LogConfig configures zap.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DefaultConfig returns the configuration AgentLink runs with when
// nothing is provided.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			ListenAddr:      ":9999",
			BaseURL:         "http://localhost:9999",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Resolution: ResolutionConfig{
			Timeout:      10 * time.Second,
			CacheBackend: "memory",
			CacheTTL:     5 * time.Minute,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "agentlink:card:",
				PoolSize:  10,
			},
		},
		Invocation: InvocationConfig{
			Timeout: 120 * time.Second,
		},
		Controller: ControllerConfig{
			MaxTurns:         5,
			TerminationToken: "TASK_COMPLETE",
			TokenEncoding:    "cl100k_base",
		},
		Chain: ChainConfig{
			MaxHops:         8,
			ScanConcurrency: 4,
		},
		History: HistoryConfig{
			Driver:          "sqlite",
			Name:            "agentlink.db",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "agentlink",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the loaded configuration for values no component
// can run with.
func (c *Config) Validate() error {
	var errs []string

	if c.Registry.BaseURL == "" {
		errs = append(errs, "registry.base_url must not be empty")
	}
	if c.Resolution.Timeout <= 0 {
		errs = append(errs, "resolution.timeout must be positive")
	}
	switch c.Resolution.CacheBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("resolution.cache_backend must be memory or redis, got %q", c.Resolution.CacheBackend))
	}
	if c.Invocation.Timeout <= 0 {
		errs = append(errs, "invocation.timeout must be positive")
	}
	if c.Controller.MaxTurns <= 0 {
		errs = append(errs, "controller.max_turns must be positive")
	}
	if c.Chain.MaxHops <= 0 {
		errs = append(errs, "chain.max_hops must be positive")
	}
	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite", "mysql", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("history.driver must be sqlite, mysql, or postgres, got %q", c.History.Driver))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
