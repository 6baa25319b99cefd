package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, "USD", cfg.BaseAsset)
		assert.Equal(t, 300, cfg.Timeframe)
		assert.Equal(t, 14, cfg.Decimals)
	})

	t.Run("File overlays defaults", func(t *testing.T) {
		path := writeConfig(t, `
assets: ["BTC", "ETH"]
timeframe: 900
batch_delay: 500ms
sources: ["binance", "kraken"]
redis_addr: "localhost:6379"
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC", "ETH"}, cfg.Assets)
		assert.Equal(t, 900, cfg.Timeframe)
		assert.Equal(t, 500*time.Millisecond, cfg.BatchDelay)
		assert.Equal(t, []string{"binance", "kraken"}, cfg.Sources)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		// untouched keys keep their defaults
		assert.Equal(t, "USD", cfg.BaseAsset)
		assert.Equal(t, 14, cfg.Decimals)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Bad duration", func(t *testing.T) {
		path := writeConfig(t, "batch_delay: soon")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		path := writeConfig(t, "assets: [unclosed")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Assets = []string{"BTC"}
		return cfg
	}

	t.Run("Defaults plus assets pass", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("No assets", func(t *testing.T) {
		cfg := valid()
		cfg.Assets = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("Missing base asset", func(t *testing.T) {
		cfg := valid()
		cfg.BaseAsset = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Bad timeframe", func(t *testing.T) {
		cfg := valid()
		cfg.Timeframe = 90
		assert.Error(t, cfg.Validate())
	})

	t.Run("Bad count", func(t *testing.T) {
		cfg := valid()
		cfg.Count = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Sources = []string{"binance"}
	opts := cfg.Options()
	assert.Equal(t, cfg.BatchSize, opts.BatchSize)
	assert.Equal(t, cfg.BatchDelay, opts.BatchDelay)
	assert.Equal(t, cfg.Timeout, opts.Timeout)
	assert.Equal(t, []string{"binance"}, opts.Sources)
}
