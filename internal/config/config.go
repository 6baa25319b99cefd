// Package config
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amirphl/price-feed/internal/aggregator"
	"github.com/amirphl/price-feed/internal/tfutils"
)

/*
YAML config example:
assets: ["BTC", "ETH", "XLM"]
base_asset: "USD"
timeframe: 300
count: 12
decimals: 14
batch_size: 10
batch_delay: 2s
timeout: 3s
sources: ["binance", "bybit", "coinbase", "kraken", "okx"]
gateway_urls: ["http://gw1:8080", "http://gw2:8080"]
validation_key: "..."
redis_addr: "localhost:6379"
*/

type Config struct {
	Assets    []string `yaml:"assets"`
	BaseAsset string   `yaml:"base_asset"`
	Timeframe int      `yaml:"timeframe"` // seconds
	Count     int      `yaml:"count"`
	Decimals  int      `yaml:"decimals"`

	BatchSize     int      `yaml:"batch_size"`
	BatchDelayStr string   `yaml:"batch_delay"`
	TimeoutStr    string   `yaml:"timeout"`
	Sources       []string `yaml:"sources"`

	BatchDelay time.Duration `yaml:"-"`
	Timeout    time.Duration `yaml:"-"`

	GatewayURLs   []string `yaml:"gateway_urls"`
	ValidationKey string   `yaml:"validation_key"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		BaseAsset:  "USD",
		Timeframe:  300,
		Count:      1,
		Decimals:   14,
		BatchSize:  aggregator.DefaultBatchSize,
		BatchDelay: aggregator.DefaultBatchDelay,
		Timeout:    aggregator.DefaultTimeout,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.BatchDelayStr != "" {
		if cfg.BatchDelay, err = time.ParseDuration(cfg.BatchDelayStr); err != nil {
			return cfg, fmt.Errorf("parsing batch_delay: %w", err)
		}
	}
	if cfg.TimeoutStr != "" {
		if cfg.Timeout, err = time.ParseDuration(cfg.TimeoutStr); err != nil {
			return cfg, fmt.Errorf("parsing timeout: %w", err)
		}
	}
	return cfg, nil
}

// Validate checks the fields the public API would reject anyway, so the CLI
// can fail before any fetch.
func (c Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("no assets configured")
	}
	if c.BaseAsset == "" {
		return fmt.Errorf("base asset is required")
	}
	if _, err := tfutils.MinutesFromSeconds(c.Timeframe); err != nil {
		return err
	}
	if c.Count < 1 {
		return fmt.Errorf("count must be greater than 0")
	}
	return nil
}

// Options maps the config onto one fetch run's options.
func (c Config) Options() aggregator.Options {
	return aggregator.Options{
		BatchSize:  c.BatchSize,
		BatchDelay: c.BatchDelay,
		Timeout:    c.Timeout,
		Sources:    c.Sources,
	}
}
