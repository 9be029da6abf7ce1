package scaffold

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-dev/roost/internal/config"
)

// chdirTemp runs the test from a fresh temporary directory.
func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestInitialize(t *testing.T) {
	t.Run("writes a loadable starter config", func(t *testing.T) {
		chdirTemp(t)

		require.NoError(t, Initialize(false))

		cfg, err := config.Load(ConfigFileName)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		chdirTemp(t)

		require.NoError(t, Initialize(false))
		err := Initialize(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		chdirTemp(t)

		require.NoError(t, os.WriteFile(ConfigFileName, []byte("version: \"0.1\"\n"), 0o644))
		require.NoError(t, Initialize(true))

		_, err := config.Load(ConfigFileName)
		assert.NoError(t, err)
	})
}
