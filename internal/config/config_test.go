package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "backtest_lab", cfg.Metrics.Namespace)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.001, cfg.Backtest.CommissionRate)
	assert.Equal(t, 0.001, cfg.Backtest.SlippageRate)
	assert.Equal(t, 50, cfg.Backtest.MinBars)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
  cors_origins:
    - "https://example.com"
backtest:
  initial_capital: 50000
  min_bars: 20
`)

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 50000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 20, cfg.Backtest.MinBars)
	// untouched keys keep defaults
	assert.Equal(t, 0.001, cfg.Backtest.CommissionRate)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.json", `{"server": {"addr": ":9000"}}`)
	t.Setenv("BACKTEST_SERVER_ADDR", ":7000")
	t.Setenv("BACKTEST_BACKTEST_COMMISSION_RATE", "0.002")
	t.Setenv("BACKTEST_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 0.002, cfg.Backtest.CommissionRate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "BACKTEST_METRICS_NAMESPACE=from_dotenv\n")
	t.Cleanup(func() { os.Unsetenv("BACKTEST_METRICS_NAMESPACE") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.Metrics.Namespace)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"dsn required without memory", "storage:\n  use_memory: false\n"},
		{"non-positive capital", "backtest:\n  initial_capital: 0\n"},
		{"negative commission", "backtest:\n  commission_rate: -0.1\n"},
		{"unknown key", "server:\n  port: 80\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", tt.content)
			_, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestLoad_DatabaseBackends(t *testing.T) {
	path := writeFile(t, "config.yaml", `
storage:
  use_memory: false
  postgres_dsn: "postgres://localhost/backtest"
  clickhouse_dsn: "clickhouse://localhost:9000/backtest"
`)
	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, cfg.Storage.UseMemory)
	assert.Equal(t, "postgres://localhost/backtest", cfg.Storage.PostgresDSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
