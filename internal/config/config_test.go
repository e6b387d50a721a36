package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 300*time.Second, cfg.Cache.DashboardTTL)
	assert.Equal(t, time.Hour, cfg.Cache.NegativeTTL)
	assert.Equal(t, int64(120), cfg.Gacha.CurrencyPerPull)
	assert.Equal(t, []int64{10, 1000}, cfg.Achievements.Milestones)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
bot:
  token: "file-token"
database:
  host: db.internal
  name: gacha_test
cache:
  type: redis
  dashboard_ttl: 60s
achievements:
  milestones: [5, 50]
admin:
  ids: [1, 2]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("GACHA_CURRENCY_PER_PULL", "160")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, time.Minute, cfg.Cache.DashboardTTL)
	assert.Equal(t, []int64{5, 50}, cfg.Achievements.Milestones)
	assert.Equal(t, int64(160), cfg.Gacha.CurrencyPerPull)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
	assert.Equal(t, "postgres://gacha:@db.internal:5432/gacha_test?sslmode=disable", cfg.Database.DSN())
}

func TestIsChatAllowed(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(42), "empty whitelist allows all")

	cfg.Whitelist.Chats = []int64{7}
	assert.True(t, cfg.IsChatAllowed(7))
	assert.False(t, cfg.IsChatAllowed(42))
}
