package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion).
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout is the per-request timeout for embedding calls.
	DefaultTimeout = 60 * time.Second

	// DefaultConnectTimeout is the timeout for the initial health check.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3
)

// DefaultDimensions is the embedding dimension an OllamaEmbedder uses when
// neither its config nor construction-time detection sets one; it is not
// revised by later calls.
const DefaultDimensions = 768

// PackCharsPerToken estimates characters-per-token for batch-packing
// decisions. It is deliberately tighter than chunk's 4-chars/token
// estimate, leaving headroom against a provider's actual tokenizer
// before a declared per-batch token budget is hit.
const PackCharsPerToken = 3

// DefaultMaxBatchTokens is the conservative per-batch token budget used
// when a provider doesn't declare its own.
const DefaultMaxBatchTokens = 8192

// StaticDimensions is the default embedding dimension for the static
// deterministic embedder.
const StaticDimensions = 256

// Embedder generates vector embeddings for text, in the declared
// Dimensions(). Vectors for non-empty text are unit-normalized; the
// built-in providers return a zero vector for empty or whitespace-only text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, packing as many
	// as the provider's batch contract allows per round-trip.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases resources held by the embedder.
	Close() error
}

// normalizeVector normalizes a vector to unit length. A zero vector is
// returned unchanged since it has no direction to normalize.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
