package hashutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Text_IsDeterministic(t *testing.T) {
	a := SHA256Text([]byte("package main\n"))
	b := SHA256Text([]byte("package main\n"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestSHA256Text_DiffersOnContentChange(t *testing.T) {
	a := SHA256Text([]byte("func A() {}"))
	b := SHA256Text([]byte("func B() {}"))
	assert.NotEqual(t, a, b)
}

func TestSHA256Text_EmptyInput(t *testing.T) {
	got := SHA256Text(nil)
	// sha256("") is a well-known constant digest.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", got)
}

func TestSHA256File_MatchesSHA256Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.go")
	content := []byte("package main\n\nfunc main() {}\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fileHash, err := SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, SHA256Text(content), fileHash)
}

func TestSHA256File_MissingFileErrors(t *testing.T) {
	_, err := SHA256File(filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
}
