package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SHELL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Hide)
	assert.False(t, cfg.Retain)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, "extensions", cfg.ExtensionDir)
	assert.Equal(t, "_", cfg.ScopePrefix())
	assert.Equal(t, "/bin/sh", cfg.ShellPath())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JISHAKU_HIDE", "true")
	t.Setenv("JISHAKU_RETAIN", "true")
	t.Setenv("JISHAKU_NO_UNDERSCORE", "true")
	t.Setenv("JISHAKU_PREFIX", "?")
	t.Setenv("JISHAKU_OWNER_IDS", "1,2,3")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Hide)
	assert.True(t, cfg.Retain)
	assert.Equal(t, "?", cfg.CommandPrefix)
	assert.Equal(t, "", cfg.ScopePrefix())
	assert.Equal(t, []string{"1", "2", "3"}, cfg.OwnerIDs)
}

func TestShellPathFallsBackToLoginShell(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	t.Setenv("JISHAKU_SHELL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/bin/zsh", cfg.ShellPath())
}
