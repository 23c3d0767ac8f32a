// Package config loads service configuration from defaults, an optional
// config file, a .env file and BACKTEST_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BACKTEST_SERVER_ADDR.
const EnvPrefix = "BACKTEST"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Backtest BacktestConfig `mapstructure:"backtest" validate:"required"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
}

// StorageConfig selects the storage backend. Bars live in ClickHouse and
// runs in PostgreSQL unless UseMemory is set.
type StorageConfig struct {
	UseMemory     bool   `mapstructure:"use_memory"`
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"required_if=UseMemory false"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn" validate:"required_if=UseMemory false"`
}

// BacktestConfig holds request defaults for the backtest runner.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" validate:"gt=0"`
	CommissionRate float64 `mapstructure:"commission_rate" validate:"gte=0"`
	SlippageRate   float64 `mapstructure:"slippage_rate" validate:"gte=0"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	MinBars        int     `mapstructure:"min_bars" validate:"gte=1"`
}

// setDefaults registers every key. Keys without a default are invisible to
// AutomaticEnv, so each field needs one here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.namespace", "backtest_lab")
	v.SetDefault("storage.use_memory", true)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("backtest.initial_capital", 10000.0)
	v.SetDefault("backtest.commission_rate", 0.001)
	v.SetDefault("backtest.slippage_rate", 0.001)
	v.SetDefault("backtest.risk_free_rate", 0.0)
	v.SetDefault("backtest.min_bars", 50)
}

// Default returns the configuration with no file or environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads configuration. path may be empty; its format follows the
// extension (yaml, json, toml). envFiles default to ".env"; missing env
// files are ignored and never override variables already set.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		v.SetConfigFile(absPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v)
}

var validate = validator.New()

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
