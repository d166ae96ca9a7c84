package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vgrep.yaml"), []byte("top_k: [this is not valid\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_EmptyYAMLFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vgrep.yaml"), nil, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.Equal(t, DefaultMaxChunkTokens, cfg.MaxChunkTokens)
}

func TestLoad_YAMLPreferredOverYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vgrep.yaml"), []byte("top_k: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vgrep.yml"), []byte("top_k: 2\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.TopK)
}

func TestLoad_ExtensionsFullyReplacedNotMerged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vgrep.yaml"), []byte("extensions: [\".rs\"]\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{".rs"}, cfg.Extensions)
}

func TestValidate_RejectsEmptyCachePath(t *testing.T) {
	cfg := NewConfig()
	cfg.RootDir = t.TempDir()
	cfg.CachePath = ""

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsBlankCollectionName(t *testing.T) {
	cfg := NewConfig()
	cfg.RootDir = t.TempDir()
	cfg.CollectionName = "   "

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroMaxChunkTokens(t *testing.T) {
	cfg := NewConfig()
	cfg.RootDir = t.TempDir()
	cfg.MaxChunkTokens = 0

	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeMinChunkTokens(t *testing.T) {
	cfg := NewConfig()
	cfg.RootDir = t.TempDir()
	cfg.MinChunkTokens = -1

	require.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides_IndexDirResolvesToAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INDEX_DIR", dir)

	cfg := NewConfig()
	cfg.RootDir = t.TempDir()
	cfg.applyEnvOverrides()

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, absDir, cfg.RootDir)
}

func TestApplyEnvOverrides_IgnoresInvalidTopK(t *testing.T) {
	t.Setenv("VGREP_TOP_K", "not-a-number")

	cfg := NewConfig()
	original := cfg.TopK
	cfg.applyEnvOverrides()

	assert.Equal(t, original, cfg.TopK)
}
