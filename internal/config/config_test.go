package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("IDEAPIPE_API_KEY", "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.API.Provider)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct", cfg.API.Model)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout())
	assert.Equal(t, 15, cfg.Pipeline.NumIdeas)
	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
	assert.Equal(t, 3, cfg.Pipeline.MaxFormatRetries)
	assert.Equal(t, 5, cfg.Pipeline.Workers)
	assert.Equal(t, "rich", cfg.Pipeline.Schema)
	assert.Equal(t, "prompts", cfg.Prompts.Dir)
	assert.Equal(t, "output", cfg.Output.Dir)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  provider: gemini
  model: gemini-2.0-flash
pipeline:
  num_ideas: 40
  schema: minimal
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.API.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.API.Model)
	assert.Equal(t, 40, cfg.Pipeline.NumIdeas)
	assert.Equal(t, "minimal", cfg.Pipeline.Schema)
	// Unset values keep their defaults.
	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvKeyFallback(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "or-key", cfg.API.Key)
}

func TestLoad_GeminiKeyFallback(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  provider: gemini\n"), 0o644))
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gm-key", cfg.API.Key)
}

func TestLoad_InvalidProvider(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  provider: other\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.provider")
}

func TestLoad_InvalidSchema(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  schema: fancy\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.schema")
}

func TestLoad_InvalidCounts(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  num_ideas: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
