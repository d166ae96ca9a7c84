package embed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackBatches_RespectsMaxCount(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = "short"
	}
	batches := PackBatches(texts, 4, 1_000_000)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[0], 4)
	assert.Len(t, batches[1], 4)
	assert.Len(t, batches[2], 2)
}

func TestPackBatches_RespectsTokenBudget(t *testing.T) {
	big := strings.Repeat("x", 300) // 100 tokens at 3 chars/token
	texts := []string{big, big, big}
	batches := PackBatches(texts, 100, 150)
	assert.Len(t, batches, 3)
	for _, b := range batches {
		assert.Len(t, b, 1)
	}
}

func TestPackBatches_OversizeTextGetsItsOwnBatch(t *testing.T) {
	huge := strings.Repeat("x", 30000)
	texts := []string{"small", huge, "small"}
	batches := PackBatches(texts, 100, 8192)
	assert.Len(t, batches, 3)
	assert.Equal(t, []string{"small"}, batches[0])
	assert.Equal(t, []string{huge}, batches[1])
	assert.Equal(t, []string{"small"}, batches[2])
}

func TestPackBatches_EmptyInputReturnsNoBatches(t *testing.T) {
	assert.Nil(t, PackBatches(nil, 10, 100))
}

func TestPackBatches_ZeroBudgetsFallBackToDefaults(t *testing.T) {
	batches := PackBatches([]string{"a", "b"}, 0, 0)
	assert.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}
