package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("🔍", "checking embedder")

	out := buf.String()
	assert.Contains(t, out, "🔍")
	assert.Contains(t, out, "checking embedder")
}

func TestWriter_Status_EmptyIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("", "continuation line")

	assert.Equal(t, "   continuation line\n", buf.String())
}

func TestWriter_Success_PrintsCheckmark(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Successf("indexed %d files", 3)

	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "indexed 3 files")
}

func TestWriter_Warning_PrintsWarningIcon(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Warning("embedder not available")

	out := buf.String()
	assert.Contains(t, out, "!")
	assert.Contains(t, out, "embedder not available")
}

func TestWriter_Error_PrintsErrorIcon(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Errorf("search failed: %s", "timeout")

	out := buf.String()
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "search failed: timeout")
}

func TestWriter_Progress_RendersBarAndPercentage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(5, 10, "embedding")

	out := buf.String()
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "embedding")
}

func TestWriter_Progress_ZeroTotalIsNoOp(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(0, 0, "ignored")

	assert.Empty(t, buf.String())
}

func TestWriter_Progress_CompletionAddsTrailingNewline(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(10, 10, "done")

	out := buf.String()
	assert.True(t, len(out) > 0 && out[len(out)-1] == '\n')
}
