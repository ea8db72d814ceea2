package config

import (
	"os"
	"path/filepath"
	"testing"

	"blackjack-ql/qlearn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
	assert.NoError(t, f.Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	p := writeFile(t, "bj.yaml", `
trainer:
  alpha: 0.2
  episodes: 500
  rewards: dealer
  source_mode: per_episode
game:
  dealer_threshold: 17
store:
  mode: sqlite
  sqlite_path: /tmp/runs.db
`)
	f, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0.2, f.Trainer.Alpha)
	assert.Equal(t, 0.1, f.Trainer.Lambda, "unset keys keep defaults")
	assert.Equal(t, 500, f.Trainer.Episodes)
	assert.Equal(t, qlearn.RewardsDealer, f.Trainer.Rewards)
	assert.Equal(t, qlearn.SourcePerEpisode, f.Trainer.SourceMode)
	assert.Equal(t, 17, f.GameConfig().DealerThreshold)
	assert.Equal(t, 16, f.GameConfig().HitThreshold)
	assert.Equal(t, "sqlite", f.Store.Mode)
	assert.NoError(t, f.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "bad.yaml", "trainer: [1, 2")
	_, err := Load(p)
	assert.Error(t, err)
}

func TestApplyEnv_BeatsYAML(t *testing.T) {
	p := writeFile(t, "bj.yaml", "trainer:\n  epsilon: 0.3\n")
	f, err := Load(p)
	require.NoError(t, err)

	t.Setenv("BJ_EPSILON", "0.05")
	t.Setenv("BJ_SEED", "42")
	t.Setenv("BJ_DEALER_THRESHOLD", "15")
	t.Setenv("STORE_MODE", "Postgres")
	t.Setenv("BJ_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	require.NoError(t, ApplyEnv(&f))

	assert.Equal(t, 0.05, f.Trainer.Epsilon)
	assert.Equal(t, int64(42), f.Trainer.Seed)
	assert.Equal(t, int64(42), f.Game.Seed)
	assert.Equal(t, 15, f.Trainer.DealerThreshold)
	assert.Equal(t, 15, f.Game.DealerThreshold)
	assert.Equal(t, "postgres", f.Store.Mode)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, f.Server.AllowedOrigins)
}

func TestApplyEnv_ReportsBadNumbers(t *testing.T) {
	f := Default()
	t.Setenv("BJ_ALPHA", "lots")
	t.Setenv("BJ_EPISODES", "many")
	err := ApplyEnv(&f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BJ_ALPHA")
	assert.Contains(t, err.Error(), "BJ_EPISODES")
}

func TestLoadEnv_DoesNotOverrideSetVars(t *testing.T) {
	p := writeFile(t, ".env", "BJ_EPISODES=123\nBJ_LAMBDA=0.7\n")
	t.Setenv("BJ_EPISODES", "999")
	t.Setenv("BJ_LAMBDA", "")
	os.Unsetenv("BJ_LAMBDA")
	require.NoError(t, LoadEnv(p))
	t.Cleanup(func() { os.Unsetenv("BJ_LAMBDA") })

	f := Default()
	require.NoError(t, ApplyEnv(&f))
	assert.Equal(t, 999, f.Trainer.Episodes)
	assert.Equal(t, 0.7, f.Trainer.Lambda)
}

func TestValidate_RejectsBadSections(t *testing.T) {
	f := Default()
	f.Trainer.Alpha = 3
	assert.Error(t, f.Validate())

	f = Default()
	f.Store.Mode = "redis"
	assert.Error(t, f.Validate())

	f = Default()
	f.Game.HitThreshold = 0
	assert.Error(t, f.Validate())
}
