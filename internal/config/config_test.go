package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "lay-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.True(t, cfg.Engine.DryRun)
	assert.Equal(t, 30, cfg.Engine.PollIntervalSeconds)
	assert.Equal(t, 12, cfg.Engine.ProcessWindowMinutes)
	assert.Equal(t, []string{"GB", "IE"}, cfg.Engine.Countries)
	assert.Equal(t, 2.0, cfg.Engine.MinOdds)
	assert.Equal(t, 50.0, cfg.Engine.MaxLayOdds)
	assert.Equal(t, "data/engine_state.json", cfg.Store.LocalPath)
}

func TestLoadReadsYAMLAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BF_APP_KEY", "abc123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  environment: production
  log_level: warn
betfair:
  app_key: ${TEST_BF_APP_KEY}
engine:
  dry_run: false
  point_value: 5
  countries: [GB, IE, ZA]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "abc123", cfg.Betfair.AppKey)
	assert.False(t, cfg.Engine.DryRun)
	assert.Equal(t, 5, cfg.Engine.PointValue)
	assert.Equal(t, []string{"GB", "IE", "ZA"}, cfg.Engine.Countries)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cases := map[string]string{
		"bad environment": "app:\n  environment: sandbox\n",
		"bad point value": "engine:\n  point_value: 7\n",
		"bad country":     "engine:\n  countries: [US]\n",
		"bad window":      "engine:\n  process_window_minutes: 90\n",
	}
	for name, yaml := range cases {
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestEngineDefaultsIsDetached(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	ec := cfg.EngineDefaults()
	require.NoError(t, ec.Validate())

	ec.Countries[0] = "FR"
	assert.Equal(t, "GB", cfg.Engine.Countries[0])
}

func TestHasExchangeCredentials(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasExchangeCredentials())

	cfg.Betfair.AppKey = "k"
	cfg.Betfair.Username = "u"
	cfg.Betfair.Password = "p"
	assert.True(t, cfg.HasExchangeCredentials())
}
