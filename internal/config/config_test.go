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
	path := filepath.Join(t.TempDir(), "arbiter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultListenAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultMaxExchanges, cfg.Budget.MaxExchanges)
	assert.Equal(t, DefaultWarningThreshold, cfg.Budget.WarningThreshold)
	assert.NotEmpty(t, cfg.Taxonomy.HighValue)
	assert.NotEmpty(t, cfg.Taxonomy.LowValue)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9999"
  read_timeout: 5s
budget:
  max_exchanges: 8
  warning_threshold: 0.5
  critical_threshold: 0.8
taxonomy:
  high_value: ["regulatory risk"]
  low_value: ["emoji"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 8, cfg.Budget.MaxExchanges)
	assert.Equal(t, 0.5, cfg.Budget.WarningThreshold)
	assert.Equal(t, []string{"regulatory risk"}, cfg.Taxonomy.HighValue)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("ARBITER_TEST_ADDR", "127.0.0.1:7777")
	path := writeConfig(t, "server:\n  addr: \"${ARBITER_TEST_ADDR}\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7777", cfg.Server.Addr)
}

func TestLoad_RejectsInvalidThresholds(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"warning above critical", "budget:\n  warning_threshold: 0.95\n  critical_threshold: 0.9\n"},
		{"warning above one", "budget:\n  warning_threshold: 1.5\n"},
		{"negative max exchanges", "budget:\n  max_exchanges: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map"))
	assert.Error(t, err)
}
