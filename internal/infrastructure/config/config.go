package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Security  SecurityConfig  `koanf:"security"`
	Auction   AuctionConfig   `koanf:"auction"`
	Websocket WebsocketConfig `koanf:"websocket"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`

	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type SecurityConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenExpiry time.Duration `koanf:"token_expiry"`
	Issuer      string        `koanf:"issuer"`
}

// AuctionConfig tunes the engine.
type AuctionConfig struct {
	FinalizeRetryAttempts int           `koanf:"finalize_retry_attempts"`
	FinalizeRetryDelay    time.Duration `koanf:"finalize_retry_delay"`
}

// WebsocketConfig tunes the room gateway.
type WebsocketConfig struct {
	PingInterval     time.Duration `koanf:"ping_interval"`
	PongTimeout      time.Duration `koanf:"pong_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
	ClientBuffer     int           `koanf:"client_buffer"`
	BroadcastBuffer  int           `koanf:"broadcast_buffer"`
	MaxMessageSize   int64         `koanf:"max_message_size"`
	BidRatePerSecond float64       `koanf:"bid_rate_per_second"`
	BidRateBurst     int           `koanf:"bid_rate_burst"`
}

type TelemetryConfig struct {
	TracingEnabled bool    `koanf:"tracing_enabled"`
	OTLPEndpoint   string  `koanf:"otlp_endpoint"`
	SampleRate     float64 `koanf:"sample_rate"`
	ServiceName    string  `koanf:"service_name"`
}

// Load builds the configuration: struct defaults, then an optional
// configs/config.yaml, then ARENA_ prefixed environment variables. Double
// underscore nests: ARENA_DATABASE__URL overrides database.url,
// ARENA_SECURITY__JWT_SECRET overrides security.jwt_secret.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
			AllowedOrigins:  []string{"*"},

			RateLimitPerMinute: 120,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			MigrationsPath:  "migrations",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Security: SecurityConfig{
			TokenExpiry: 12 * time.Hour,
			Issuer:      "arenabid",
		},
		Auction: AuctionConfig{
			FinalizeRetryAttempts: 3,
			FinalizeRetryDelay:    100 * time.Millisecond,
		},
		Websocket: WebsocketConfig{
			PingInterval:     30 * time.Second,
			PongTimeout:      60 * time.Second,
			WriteTimeout:     10 * time.Second,
			ClientBuffer:     64,
			BroadcastBuffer:  4096,
			MaxMessageSize:   8 * 1024,
			BidRatePerSecond: 5,
			BidRateBurst:     10,
		},
		Telemetry: TelemetryConfig{
			SampleRate:  0.1,
			ServiceName: "live-auction-backend",
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// The config file is optional; env vars alone are enough in containers.
	_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())

	if err := k.Load(env.Provider("ARENA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ARENA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Environment != "development" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required outside development")
	}
	if c.Auction.FinalizeRetryAttempts < 1 {
		return fmt.Errorf("auction.finalize_retry_attempts must be at least 1")
	}
	return nil
}
