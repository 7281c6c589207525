package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/notepad/internal/autosave"
)

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file uses defaults", func(t *testing.T) {
		s, err := loadSettings(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		require.Equal(t, defaultServer, s.Server)
		require.Equal(t, autosave.DefaultQuiet, s.QuietPeriod)
	})

	t.Run("file overrides", func(t *testing.T) {
		path := filepath.Join(dir, "notepad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: http://notes.lan:9000\nquiet_period: 2s\n"), 0o600))

		s, err := loadSettings(path)
		require.NoError(t, err)
		require.Equal(t, "http://notes.lan:9000", s.Server)
		require.Equal(t, 2*time.Second, s.QuietPeriod)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("quiet_period: 1s\n"), 0o600))

		s, err := loadSettings(path)
		require.NoError(t, err)
		require.Equal(t, defaultServer, s.Server)
		require.Equal(t, time.Second, s.QuietPeriod)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed\n"), 0o600))

		_, err := loadSettings(path)
		require.Error(t, err)
	})
}

func TestSettings_SetQuiet(t *testing.T) {
	var s settings
	require.NoError(t, s.setQuiet("250ms"))
	require.Equal(t, 250*time.Millisecond, s.QuietPeriod)
	require.Error(t, s.setQuiet("soon"))
	require.Error(t, s.setQuiet("-1s"))
}
