package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execCmd(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestCLI_IndexSearchStatsReset_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "auth.go", `package auth

// ValidateToken checks a bearer token against the signing secret.
func ValidateToken(token, secret string) bool {
	return token != "" && secret != ""
}
`)

	indexOut := execCmd(t, "index", root, "--offline")
	assert.Contains(t, indexOut, "indexed")

	searchOut := execCmd(t, "search", "validate a bearer token", "--path", root, "--offline")
	assert.Contains(t, searchOut, "auth.go")

	statsOut := execCmd(t, "stats", "--path", root)
	assert.Contains(t, statsOut, "chunks indexed")

	resetOut := execCmd(t, "reset", "--path", root)
	assert.Contains(t, resetOut, "reset")

	statsAfterReset := execCmd(t, "stats", "--path", root)
	assert.Contains(t, statsAfterReset, "chunks indexed: 0")
}

func TestCLI_SearchOnUnindexedProject_ReturnsNoResults(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "empty.go", "package empty\n")

	out := execCmd(t, "search", "anything at all", "--path", root, "--offline")
	assert.Contains(t, out, "no results")
}
