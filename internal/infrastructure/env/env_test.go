package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvService_Getters(t *testing.T) {
	t.Setenv("WP_STR", "  value ")
	t.Setenv("WP_BOOL", "true")
	t.Setenv("WP_BAD_BOOL", "maybe")
	t.Setenv("WP_INT", "42")
	t.Setenv("WP_FLOAT", "0.5")
	t.Setenv("WP_DUR", "1m30s")
	t.Setenv("WP_SECS", "2.5")
	t.Setenv("WP_LIST", "example.com, ,docs.example.com,")

	e := &EnvService{}

	assert.Equal(t, "value", e.Get("WP_STR"))
	assert.Equal(t, "fallback", e.GetWithDefault("WP_MISSING", "fallback"))
	assert.True(t, e.GetBool("WP_BOOL", false))
	assert.True(t, e.GetBool("WP_BAD_BOOL", true))
	assert.Equal(t, 42, e.GetInt("WP_INT", 0))
	assert.Equal(t, 7, e.GetInt("WP_STR", 7))
	assert.InDelta(t, 0.5, e.GetFloat("WP_FLOAT", 0), 1e-9)
	assert.Equal(t, 90*time.Second, e.GetDuration("WP_DUR", 0))
	assert.Equal(t, 2500*time.Millisecond, e.GetDuration("WP_SECS", 0))
	assert.Equal(t, time.Second, e.GetDuration("WP_MISSING", time.Second))
	assert.Equal(t, []string{"example.com", "docs.example.com"}, e.GetList("WP_LIST"))
	assert.Nil(t, e.GetList("WP_MISSING"))
}

func TestNewFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, ".env")
	local := filepath.Join(dir, ".env.test")
	require.NoError(t, os.WriteFile(base, []byte("WP_MODEL=base\nWP_STEPS=10\n"), 0o600))
	require.NoError(t, os.WriteFile(local, []byte("WP_MODEL=local\n"), 0o600))
	t.Setenv("WP_MODEL", "")
	t.Setenv("WP_STEPS", "")

	e, err := NewFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, "local", e.Get("WP_MODEL"))
	assert.Equal(t, 10, e.GetInt("WP_STEPS", 0))
}

func TestNewFromFiles_Missing(t *testing.T) {
	_, err := NewFromFiles(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}
