package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, StrategyDeterministic, cfg.Execution.Strategy)
	assert.Equal(t, 20, cfg.Execution.MaxTurns)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
execution:
  strategy: directed
  max_turns: 10
server:
  http_port: 9999
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, StrategyDirected, cfg.Execution.Strategy)
	assert.Equal(t, 10, cfg.Execution.MaxTurns)
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	// Untouched values keep their defaults.
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	t.Setenv("PRICESCOUT_STRATEGY", "directed")
	t.Setenv("PRICESCOUT_PLANNER_API_KEY", "test-key")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, StrategyDirected, cfg.Execution.Strategy)
	assert.Equal(t, "test-key", cfg.Planner.APIKey)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	cfg.Execution.Strategy = "hybrid"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Execution.MaxTurns = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}

func TestLoadSites(t *testing.T) {
	sites, err := LoadSites("")
	require.NoError(t, err)
	assert.Contains(t, sites, "zalando")
	assert.Contains(t, sites, "amazon")

	dir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	content := `
bikeshop:
  name: Bikeshop
  search_url: "https://bikeshop.example/search?q={query}"
  rate_limit: 1s
  selectors:
    price: ".price"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sites, err = LoadSites(path)
	require.NoError(t, err)
	require.Contains(t, sites, "bikeshop")
	assert.Equal(t, time.Second, sites["bikeshop"].RateLimit)
	assert.Equal(t, "https://bikeshop.example/search?q=carbon+frame",
		sites["bikeshop"].SearchURLFor("carbon+frame"))
}

func TestLoadSites_MissingSearchURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("broken:\n  name: Broken\n"), 0o644))

	_, err := LoadSites(path)
	assert.Error(t, err)
}
