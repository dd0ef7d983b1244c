package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAMLDefaults(t *testing.T) {
	path := write(t, "pickup.yaml", `
seller_id: farm-7
pickup_slot: "2026-10-16"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "farm-7", cfg.SellerID)
	assert.Equal(t, "2026-10-16", cfg.PickupSlot)
	assert.Equal(t, "pickup.db", cfg.Database)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "catalog.", cfg.Feed.TopicPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.RetryInitial)
	assert.Equal(t, 30*time.Second, cfg.Feed.RetryMax)
	assert.Empty(t, cfg.UserID)
}

func TestLoad_YAMLFull(t *testing.T) {
	path := write(t, "pickup.yml", `
seller_id: farm-7
pickup_slot: "2026-10-16"
user_id: u1
database: /tmp/p.db
log_level: debug
feed:
  topic_prefix: "feed/"
  retry_initial: 100ms
  retry_max: 1m30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "u1", cfg.UserID)
	assert.Equal(t, "/tmp/p.db", cfg.Database)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "feed/", cfg.Feed.TopicPrefix)
	assert.Equal(t, 100*time.Millisecond, cfg.Feed.RetryInitial)
	assert.Equal(t, 90*time.Second, cfg.Feed.RetryMax)
}

func TestLoad_CUE(t *testing.T) {
	path := write(t, "pickup.cue", `
seller_id:   "farm-7"
pickup_slot: "2026-10-16"
log_level:   "warn"
feed: retry_max: "10s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "farm-7", cfg.SellerID)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, 10*time.Second, cfg.Feed.RetryMax)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.RetryInitial)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "unknown yaml key",
			file:    "c.yaml",
			content: "seller_id: s\npickup_slot: \"2026-10-16\"\ncolour: blue\n",
			wantErr: "colour",
		},
		{
			name:    "missing seller",
			file:    "c.yaml",
			content: "pickup_slot: \"2026-10-16\"\n",
			wantErr: "invalid config",
		},
		{
			name:    "bad slot",
			file:    "c.yaml",
			content: "seller_id: s\npickup_slot: tomorrow\n",
			wantErr: "invalid config",
		},
		{
			name:    "bad log level",
			file:    "c.yaml",
			content: "seller_id: s\npickup_slot: \"2026-10-16\"\nlog_level: loud\n",
			wantErr: "invalid config",
		},
		{
			name:    "bad duration",
			file:    "c.yaml",
			content: "seller_id: s\npickup_slot: \"2026-10-16\"\nfeed:\n  retry_max: soon\n",
			wantErr: "invalid config",
		},
		{
			name:    "initial above max",
			file:    "c.yaml",
			content: "seller_id: s\npickup_slot: \"2026-10-16\"\nfeed:\n  retry_initial: 1m\n  retry_max: 1s\n",
			wantErr: "exceeds",
		},
		{
			name:    "unknown cue field",
			file:    "c.cue",
			content: "seller_id: \"s\"\npickup_slot: \"2026-10-16\"\ncolour: \"blue\"\n",
			wantErr: "invalid config",
		},
		{
			name:    "unsupported extension",
			file:    "c.toml",
			content: "seller_id = \"s\"\n",
			wantErr: "unsupported extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_AfterOverrides(t *testing.T) {
	cfg, err := ParseYAML([]byte("seller_id: s\npickup_slot: \"2026-10-16\"\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.PickupSlot = "not-a-date"
	assert.Error(t, cfg.Validate())

	cfg.PickupSlot = "2026-10-17"
	cfg.SellerID = ""
	assert.Error(t, cfg.Validate())
}

func TestSlogLevel_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Config{}.SlogLevel())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "error"}.SlogLevel())
}

func TestResolve_FillsDefaults(t *testing.T) {
	cfg, err := Config{SellerID: "s", PickupSlot: "2026-10-16"}.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "pickup.db", cfg.Database)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "catalog.", cfg.Feed.TopicPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.RetryInitial)
	assert.Equal(t, 30*time.Second, cfg.Feed.RetryMax)
}
