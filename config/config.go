// Package config loads server settings from defaults, an optional YAML file and
// EVENT_TICKETING_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "EVENT_TICKETING"

type StoreDriver string

const (
	DRIVER_DYNAMO   StoreDriver = "dynamo"
	DRIVER_POSTGRES StoreDriver = "postgres"
)

type Config struct {
	Env          string             `mapstructure:"env"`
	Host         string             `mapstructure:"host"`
	Port         string             `mapstructure:"port"`
	Store        StoreConfig        `mapstructure:"store"`
	Dynamo       DynamoConfig       `mapstructure:"dynamo"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Currency     string             `mapstructure:"currency"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Registration RegistrationConfig `mapstructure:"registration"`
}

type StoreConfig struct {
	Driver StoreDriver `mapstructure:"driver"`
}

type DynamoConfig struct {
	Table string `mapstructure:"table"`
	// Endpoint overrides the AWS endpoint, for dynamodb-local.
	Endpoint string `mapstructure:"endpoint"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	// Secret signs access tokens. When empty, SecretSSMParam names an SSM
	// parameter holding it.
	Secret         string        `mapstructure:"secret"`
	SecretSSMParam string        `mapstructure:"secret_ssm_param"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RegistrationConfig struct {
	MaxTicketAttempts int `mapstructure:"max_ticket_attempts"`
}

func Defaults() Config {
	return Config{
		Env:  "local",
		Host: "0.0.0.0",
		Port: "8080",
		Store: StoreConfig{
			Driver: DRIVER_DYNAMO,
		},
		Dynamo: DynamoConfig{
			Table: "event-ticketing",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Currency: "USD",
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Cache: CacheConfig{
			TTL: 30 * time.Second,
		},
		Registration: RegistrationConfig{
			MaxTicketAttempts: 10,
		},
	}
}

// NewViper returns a viper instance with every key defaulted, so environment
// overrides are seen by Unmarshal even when no file sets the key.
func NewViper() *viper.Viper {
	v := viper.New()

	d := Defaults()
	v.SetDefault("env", d.Env)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("store.driver", string(d.Store.Driver))
	v.SetDefault("dynamo.table", d.Dynamo.Table)
	v.SetDefault("dynamo.endpoint", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.secret_ssm_param", "")
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("currency", d.Currency)
	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("registration.max_ticket_attempts", d.Registration.MaxTicketAttempts)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configFile if given, applies environment overrides and
// validates the result.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DRIVER_DYNAMO:
		if c.Dynamo.Table == "" {
			errs = append(errs, errors.New("dynamo.table is required for the dynamo store"))
		}
	case DRIVER_POSTGRES:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Registration.MaxTicketAttempts < 1 {
		errs = append(errs, errors.New("registration.max_ticket_attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
