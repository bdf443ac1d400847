package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

// Config is the process-wide configuration tree, loaded once at startup
// from CARTPAY_-prefixed environment variables.
type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	PSP      PSPConfig      `koanf:"psp"`
	Identity IdentityConfig `koanf:"identity"`
	Retry    RetryConfig    `koanf:"retry"`
	Capture  CaptureConfig  `koanf:"capture"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// PSPConfig points at the external payment service provider the gateway
// mediates every authorize/capture/cancel/refund call through.
type PSPConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	APIKey      string        `koanf:"api_key" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
	Commando    bool          `koanf:"commando"`
}

// IdentityConfig points at the out-of-scope payer/payment-method directory
// service this gateway resolves tokenized handles against.
type IdentityConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

// CaptureConfig governs deferred-capture defaults and the sweeper's cutoff
// window.
type CaptureConfig struct {
	DelayCaptureDefault bool          `koanf:"delay_capture_default"`
	DefaultCaptureAfter time.Duration `koanf:"default_capture_after"`
	SweepCutoff         time.Duration `koanf:"sweep_cutoff"`
	DescriptionMaxLen   int           `koanf:"description_max_len"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

// LoadConfig reads CARTPAY_-prefixed environment variables (double
// underscore nests, e.g. CARTPAY_DATABASE__HOST) into Config and validates
// every `validate:"required"` field.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("CARTPAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CARTPAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return cfg, nil
}

// defaultConfig seeds the handful of values a production deployment will
// rarely want to override, matching the spec's stated defaults.
func defaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			DefaultCaptureAfter: 24 * time.Hour,
			SweepCutoff:         7 * 24 * time.Hour,
			DescriptionMaxLen:   1000,
		},
		Retry: RetryConfig{
			BaseDelay:  200 * time.Millisecond,
			MaxRetries: 3,
		},
		Worker: WorkerConfig{
			Interval:  time.Minute,
			BatchSize: 100,
		},
	}
}
