package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://www.vivino.com", cfg.Sources.VivinoBaseURL)
	assert.Equal(t, "https://www.wine-searcher.com", cfg.Sources.WineSearcherBaseURL)
	assert.Equal(t, 30, cfg.Sources.TimeoutSecs)
	assert.InDelta(t, 1.0, cfg.Sources.RequestsPerSecond, 0.001)
	assert.Equal(t, 3, cfg.Sources.MaxRetries)
	assert.InDelta(t, 0.60, cfg.Match.ReviewThreshold, 0.001)
	assert.InDelta(t, 0.85, cfg.Match.ConfidenceThreshold, 0.001)
	assert.False(t, cfg.Reconcile.PreserveManual)
	assert.False(t, cfg.Reconcile.PreserveConfirmed)
	assert.Equal(t, 7, cfg.Reconcile.ValuationStaleDays)
	assert.Equal(t, 30, cfg.Reconcile.CriticStaleDays)
	assert.InDelta(t, 5.0, cfg.Batch.DelaySecs, 0.001)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, "@weekly", cfg.Schedule.ValuationsSpec)
	assert.Equal(t, "@weekly", cfg.Schedule.CriticScoresSpec)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: cellar.db
log:
  level: debug
  format: console
server:
  port: 9090
reconcile:
  preserve_manual: true
batch:
  delay_secs: 0.5
critic:
  aliases_file: aliases.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cellar.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Reconcile.PreserveManual)
	assert.InDelta(t, 0.5, cfg.Batch.DelaySecs, 0.001)
	assert.Equal(t, "aliases.yaml", cfg.Critic.AliasesFile)
	// Defaults still apply for unset values
	assert.Equal(t, 7, cfg.Reconcile.ValuationStaleDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CELLAR_STORE_DRIVER", "postgres")
	t.Setenv("CELLAR_STORE_DATABASE_URL", "postgres://localhost/cellar")
	t.Setenv("CELLAR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/cellar", cfg.Store.DatabaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("CELLAR_SERVER_PORT", "3000")
	t.Setenv("CELLAR_RECONCILE_PRESERVE_CONFIRMED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Reconcile.PreserveConfirmed)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/cellar"
	cfg.Store.MaxConns = 10
	cfg.Store.MinConns = 2
	cfg.Server.Port = 8080
	cfg.Sources.TimeoutSecs = 30
	cfg.Sources.RequestsPerSecond = 1
	cfg.Sources.MaxRetries = 3
	cfg.Match.ReviewThreshold = 0.6
	cfg.Match.ConfidenceThreshold = 0.85
	cfg.Reconcile.ValuationStaleDays = 7
	cfg.Reconcile.CriticStaleDays = 30
	cfg.Batch.DelaySecs = 5
	cfg.Schedule.Enabled = true
	cfg.Schedule.ValuationsSpec = "@weekly"
	cfg.Schedule.CriticScoresSpec = "@weekly"
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "batch", "fetch", "migrate", "export"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg = validDefaults()
	cfg.Store.MinConns = 20
	err = cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.min_conns")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// Port only matters for serve
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidateSources(t *testing.T) {
	cfg := validDefaults()
	cfg.Sources.TimeoutSecs = 0
	cfg.Sources.MaxRetries = 11
	cfg.Batch.DelaySecs = -1

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sources.timeout_secs must be > 0")
	assert.Contains(t, err.Error(), "sources.max_retries must be between 0 and 10")
	assert.Contains(t, err.Error(), "batch.delay_secs must be >= 0")

	// Sources are unused by migrate
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateThresholds(t *testing.T) {
	cfg := validDefaults()

	cfg.Match.ReviewThreshold = -0.1
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "match thresholds must be between 0 and 1")

	cfg.Match.ReviewThreshold = 0.9
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")

	cfg.Match.ReviewThreshold = 0.6
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateStaleness(t *testing.T) {
	cfg := validDefaults()
	cfg.Reconcile.ValuationStaleDays = 0
	cfg.Reconcile.CriticStaleDays = -3

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reconcile.valuation_stale_days")
	assert.Contains(t, err.Error(), "reconcile.critic_stale_days")
}

func TestValidateSchedule(t *testing.T) {
	cfg := validDefaults()
	cfg.Schedule.ValuationsSpec = ""

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "schedule specs are required")

	cfg.Schedule.Enabled = false
	assert.NoError(t, cfg.Validate("serve"))
}
