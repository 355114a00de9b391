package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("MIN_SELECTION_PX", "16")
	t.Setenv("DELIVERY_GRACE_MS", "250")
	t.Setenv("DECODE_TRY_HARDER", "false")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.True(t, cfg.EnableFileLogging)
	assert.Equal(t, "Ctrl+Shift+T", cfg.Hotkey)
	assert.Equal(t, 16, cfg.MinSelectionPx)
	assert.Equal(t, 250*time.Millisecond, cfg.DeliveryGrace())
	assert.False(t, cfg.DecodeTryHarder)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOTKEY", "")
	t.Setenv("MIN_SELECTION_PX", "not-a-number")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, DefaultHotkey, cfg.Hotkey)
	assert.Equal(t, DefaultMinSelectionPx, cfg.MinSelectionPx)
	assert.Equal(t, 100*time.Millisecond, cfg.DeliveryGrace())
	assert.Equal(t, 5*time.Second, cfg.DecodeDeadline())
	assert.True(t, cfg.DecodeTryHarder)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hotkey: Alt+F9\nmin_selection_px: 24\ncapture_display: 1\n"), 0600))

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	require.NoError(t, err)
	assert.Equal(t, "Alt+F9", cfg.Hotkey)
	assert.Equal(t, 24, cfg.MinSelectionPx)
	assert.Equal(t, 1, cfg.CaptureDisplay)
	assert.Equal(t, path, cfg.Source)
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yml")
	require.NoError(t, os.WriteFile(path, []byte("hotkey: Alt+F9\n"), 0600))
	t.Setenv("HOTKEY", "Ctrl+Alt+Z")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Alt+Z", cfg.Hotkey)
}

func TestLoadDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.env")
	require.NoError(t, os.WriteFile(path, []byte("DECODE_DEADLINE_SEC=9\n"), 0600))
	t.Setenv("DECODE_DEADLINE_SEC", "")
	os.Unsetenv("DECODE_DEADLINE_SEC")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.DecodeDeadlineSec)
	os.Unsetenv("DECODE_DEADLINE_SEC")
}

func TestInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hotkey: [unterminated\n"), 0600))
	_, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	assert.Error(t, err)
}
