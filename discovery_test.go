// FILE: launchconf/discovery_test.go
package launchconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDiscoveryOptions(t *testing.T) {
	opts := DefaultDiscoveryOptions("launchconf")
	assert.Equal(t, "launchconf", opts.Name)
	assert.Equal(t, "LAUNCHCONF_CONFIG", opts.EnvVar)
	assert.Equal(t, "--config", opts.CLIFlag)
	assert.Equal(t, []string{".yaml", ".yml", ".toml", ".json", ".jsonc"}, opts.Extensions)
	assert.True(t, opts.UseXDG)
	assert.True(t, opts.UseCurrentDir)
}

func TestDiscoverDocument(t *testing.T) {
	// Deterministic options: no XDG, no cwd, no env.
	base := DiscoveryOptions{
		Name:       "run",
		Extensions: []string{".yaml", ".toml"},
		CLIFlag:    "--config",
	}

	t.Run("CLIFlagSpaceForm", func(t *testing.T) {
		path, ok := DiscoverDocument([]string{"trainer.nnodes=2", "--config", "custom.yaml"}, base)
		require.True(t, ok)
		assert.Equal(t, "custom.yaml", path)
	})

	t.Run("CLIFlagEqualsForm", func(t *testing.T) {
		path, ok := DiscoverDocument([]string{"--config=other.toml"}, base)
		require.True(t, ok)
		assert.Equal(t, "other.toml", path)
	})

	t.Run("DanglingFlagIgnored", func(t *testing.T) {
		_, ok := DiscoverDocument([]string{"--config"}, base)
		assert.False(t, ok)
	})

	t.Run("EnvVar", func(t *testing.T) {
		opts := base
		opts.EnvVar = "LCDISC_CONFIG"
		os.Setenv("LCDISC_CONFIG", "/from/env.yaml")
		defer os.Unsetenv("LCDISC_CONFIG")

		path, ok := DiscoverDocument(nil, opts)
		require.True(t, ok)
		assert.Equal(t, "/from/env.yaml", path)
	})

	t.Run("FlagBeatsEnvVar", func(t *testing.T) {
		opts := base
		opts.EnvVar = "LCDISC_CONFIG"
		os.Setenv("LCDISC_CONFIG", "/from/env.yaml")
		defer os.Unsetenv("LCDISC_CONFIG")

		path, ok := DiscoverDocument([]string{"--config", "/from/flag.yaml"}, opts)
		require.True(t, ok)
		assert.Equal(t, "/from/flag.yaml", path)
	})

	t.Run("PathSearchHonorsExtensionOrder", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "run.toml"), []byte("a = 1\n"), 0644))

		opts := base
		opts.Paths = []string{dir}

		path, ok := DiscoverDocument(nil, opts)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "run.toml"), path)

		// A yaml sibling outranks the toml because of extension order.
		require.NoError(t, os.WriteFile(filepath.Join(dir, "run.yaml"), []byte("a: 2\n"), 0644))
		path, ok = DiscoverDocument(nil, opts)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "run.yaml"), path)
	})

	t.Run("FirstDirectoryWins", func(t *testing.T) {
		dirA := t.TempDir()
		dirB := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dirB, "run.yaml"), []byte("a: 1\n"), 0644))

		opts := base
		opts.Paths = []string{dirA, dirB}

		path, ok := DiscoverDocument(nil, opts)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dirB, "run.yaml"), path)
	})

	t.Run("NotFound", func(t *testing.T) {
		opts := base
		opts.Paths = []string{t.TempDir()}
		_, ok := DiscoverDocument(nil, opts)
		assert.False(t, ok)
	})
}

func TestResolverWithDiscovery(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("trainer:\n  nnodes: 3\n"), 0644))

	opts := DiscoveryOptions{
		Name:       "run",
		Extensions: []string{".yaml"},
		CLIFlag:    "--config",
		Paths:      []string{dir},
	}

	t.Run("Found", func(t *testing.T) {
		res, err := NewResolver().
			WithArgs([]string{"trainer.total_epochs=5"}).
			WithDiscovery(opts).
			Resolve()
		require.NoError(t, err)

		nnodes, err := res.Config.Int64("trainer.nnodes")
		require.NoError(t, err)
		assert.Equal(t, int64(3), nnodes)
		assert.Equal(t, configPath, res.BaseFile)
	})

	t.Run("NotFoundResolvesFromDefaults", func(t *testing.T) {
		missing := opts
		missing.Paths = []string{t.TempDir()}

		defaults := Mapping()
		defaults.Set("fallback", Scalar(true))

		res, err := NewResolver().
			WithBase(defaults).
			WithDiscovery(missing).
			Resolve()
		require.NoError(t, err)

		v, err := res.Config.Bool("fallback")
		require.NoError(t, err)
		assert.True(t, v)
		assert.Equal(t, "", res.BaseFile)
	})
}
