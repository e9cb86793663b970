// Package config loads runtime settings from oasgate.toml, OASGATE_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OASGATE_SERVER_ADDR
const EnvPrefix = "OASGATE"

type Config struct {
	Contract string         `mapstructure:"contract" validate:"required"`
	Server   ServerConfig   `mapstructure:"server"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	SystemPrefix    string        `mapstructure:"system_prefix" validate:"required,startswith=/"`
	Compress        bool          `mapstructure:"compress"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type DispatchConfig struct {
	// DefaultTimeout bounds handlers whose operation sets no x-timeout,
	// zero leaves them unbounded
	DefaultTimeout time.Duration `mapstructure:"default_timeout" validate:"gte=0"`

	// Timeouts overrides handler timeouts by operation id
	Timeouts map[string]time.Duration `mapstructure:"timeouts"`

	RequireAllHandlers bool `mapstructure:"require_all_handlers"`
	Mock               bool `mapstructure:"mock"`

	// StrictBodies rejects undeclared properties even when a schema leaves
	// additionalProperties unset
	StrictBodies bool `mapstructure:"strict_bodies"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// SetDefaults registers every key with its default, which also makes
// every key overridable from the environment
func SetDefaults(v *viper.Viper) {
	v.SetDefault("contract", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.system_prefix", "/_")
	v.SetDefault("server.compress", true)
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("dispatch.default_timeout", 30*time.Second)
	v.SetDefault("dispatch.timeouts", map[string]any{})
	v.SetDefault("dispatch.require_all_handlers", false)
	v.SetDefault("dispatch.mock", false)
	v.SetDefault("dispatch.strict_bodies", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration into v and returns the validated result. When
// file is empty, oasgate.toml is looked up in the working directory and
// may be absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("oasgate")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// HandlerTimeout picks the timeout for an operation: the contract's
// x-timeout first, then the configured override, then the default. Zero
// means no deadline.
func (c DispatchConfig) HandlerTimeout(operationID string, declared time.Duration) time.Duration {
	if declared > 0 {
		return declared
	}
	if d, ok := c.Timeouts[operationID]; ok && d > 0 {
		return d
	}
	// viper lowercases map keys
	if d, ok := c.Timeouts[strings.ToLower(operationID)]; ok && d > 0 {
		return d
	}
	return c.DefaultTimeout
}
