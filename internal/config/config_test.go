package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load("testdata/does-not-exist.env")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	for _, key := range []string{"STAFF_ROLE_ID", "OWNER_ROLE_ID", "STORE_BACKEND", "STORE_PATH", "APP_PORT", "TICKET_CLOSE_DELAY_SECONDS", "EMBED_DRAFT_TTL_MINUTES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, "bot_data.json", cfg.Store.Path)
	assert.Equal(t, 10*time.Second, cfg.Tickets.CloseDelay())
	assert.Equal(t, 15*time.Minute, cfg.Tickets.EmbedDraftTTL())
	assert.Equal(t, 5000, cfg.App.PortStart)
	assert.Equal(t, 5099, cfg.App.PortEnd)
	assert.Empty(t, cfg.App.Port)
	assert.True(t, cfg.Discord.AutoPostPanels)
	assert.True(t, cfg.Report.Enabled())
	assert.Empty(t, cfg.Discord.StaffRoles())
}

func TestLoadRoleIDs(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	t.Setenv("STAFF_ROLE_ID", "1401234567890123456")
	t.Setenv("OWNER_ROLE_ID", "1401234567890123457")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, []string{"1401234567890123456", "1401234567890123457"}, cfg.Discord.StaffRoles())
}

func TestLoadRejectsMalformedRoleID(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	t.Setenv("OWNER_ROLE_ID", "owner")

	_, err := Load("testdata/does-not-exist.env")
	assert.ErrorContains(t, err, "OWNER_ROLE_ID")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	t.Setenv("STORE_BACKEND", "sqlite")

	_, err := Load("testdata/does-not-exist.env")
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestPostgresBackendNeedsDSN(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load("testdata/does-not-exist.env")
	assert.ErrorContains(t, err, "POSTGRES_DSN")
}

func TestReportEnabled(t *testing.T) {
	assert.False(t, ReportConfig{Schedule: "off"}.Enabled())
	assert.False(t, ReportConfig{}.Enabled())
	assert.True(t, ReportConfig{Schedule: "0 */6 * * *"}.Enabled())
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	cfg, err := Read("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Admin.JWTSecret)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}
