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

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
qbittorrent:
  url: http://seedbox:8080
  username: admin
cleanup:
  rules_file: /etc/qbitprune/rules.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://seedbox:8080", cfg.QBittorrent.URL)
	assert.Equal(t, "admin", cfg.QBittorrent.Username)
	assert.Equal(t, 30, cfg.QBittorrent.Timeout)
	assert.Equal(t, "/etc/qbitprune/rules.yaml", cfg.Cleanup.RulesFile)
	assert.Equal(t, int64(300<<30), cfg.Cleanup.RequiredBytes)
	assert.InDelta(t, 1.15, cfg.Cleanup.Leeway, 1e-9)
	assert.False(t, cfg.Cleanup.DeleteFiles)
	assert.Zero(t, cfg.Cleanup.RunTimeout)
	assert.True(t, cfg.Reconcile.Enabled)
	assert.Equal(t, []string{"temp"}, cfg.Reconcile.SkipDirs)
	assert.Equal(t, []string{".stfolder", ".stignore", ".!qB"}, cfg.Reconcile.IgnoreMarkers)
	assert.False(t, cfg.Safety.DryRun)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/qbitprune/qbitprune.log"), cfg.Cleanup.LogFile)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
cleanup:
  required_space: 1.5 TiB
  leeway: 1.3
  delete_files: true
  run_timeout: 10m
reconcile:
  enabled: false
logging:
  level: debug
  format: json
`)
	t.Setenv("QBITPRUNE_SAFETY_DRY_RUN", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(3 << 39), cfg.Cleanup.RequiredBytes)
	assert.InDelta(t, 1.3, cfg.Cleanup.Leeway, 1e-9)
	assert.True(t, cfg.Cleanup.DeleteFiles)
	assert.Equal(t, 10*time.Minute, cfg.Cleanup.RunTimeout)
	assert.False(t, cfg.Reconcile.Enabled)
	assert.True(t, cfg.Safety.DryRun)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "leeway too small",
			content: "cleanup:\n  leeway: 1\n",
			errMsg:  "cleanup.leeway must be greater than 1",
		},
		{
			name:    "unparseable required space",
			content: "cleanup:\n  required_space: plenty\n",
			errMsg:  "invalid cleanup.required_space",
		},
		{
			name:    "empty url",
			content: "qbittorrent:\n  url: \"\"\n",
			errMsg:  "qbittorrent.url is required",
		},
		{
			name:    "bad level",
			content: "logging:\n  level: verbose\n",
			errMsg:  "invalid logging level: verbose",
		},
		{
			name:    "bad format",
			content: "logging:\n  format: xml\n",
			errMsg:  "invalid logging format: xml",
		},
		{
			name:    "malformed yaml",
			content: "cleanup: [unclosed\n",
			errMsg:  "error reading config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, filepath.Join(home, "x/y"), expandPath("~/x/y"))
	assert.Equal(t, "/abs/~/x", expandPath("/abs/~/x"))
	assert.Equal(t, "~user/x", expandPath("~user/x"))
	assert.Equal(t, "", expandPath(""))
}
