package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder produces deterministic, hash-based embeddings with no
// external dependencies: no network call, no model download. Semantic
// quality is far below a trained model, but it lets every vgrep command
// work offline and gives the benchmark harness a zero-setup baseline to
// compare real providers against.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// codeStopWords are keywords common enough across the supported grammars
// that they add noise rather than signal to a hash-bucketed vector.
var codeStopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "import": true, "const": true, "var": true,
	"let": true, "int": true, "string": true, "bool": true,
	"void": true, "true": true, "false": true, "nil": true,
	"null": true, "this": true, "self": true, "new": true,
}

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStaticEmbedder builds a ready-to-use static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed hashes text's identifier tokens and character trigrams into a
// StaticDimensions-wide bucket vector, then unit-normalizes it.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	return normalizeVector(bucketVector(trimmed)), nil
}

func (e *StaticEmbedder) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return fmt.Errorf("embedder is closed")
	}
	return nil
}

// bucketVector hashes text's tokens (weight 0.7) and lowercased,
// punctuation-stripped character trigrams (weight 0.3) into a fixed-width
// vector, so related identifiers and related substrings both add mass to
// overlapping buckets even without a trained model behind them.
func bucketVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	for _, token := range filterStopWords(tokenize(text)) {
		vector[hashBucket(token, StaticDimensions)] += tokenWeight
	}
	for _, ngram := range trigrams(foldToAlnum(text)) {
		vector[hashBucket(ngram, StaticDimensions)] += ngramWeight
	}
	return vector
}

// tokenize splits text on non-alphanumeric runs, then further splits each
// resulting word on camelCase/snake_case boundaries so identifier style
// doesn't change what a token hashes to.
func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenPattern.FindAllString(text, -1) {
		for _, part := range splitIdentifier(word) {
			if lower := strings.ToLower(part); lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// splitIdentifier breaks a single word into its snake_case parts, then
// breaks each part into its camelCase parts.
func splitIdentifier(word string) []string {
	if !strings.Contains(word, "_") {
		return splitCamelCase(word)
	}

	var result []string
	for _, part := range strings.Split(word, "_") {
		if part != "" {
			result = append(result, splitCamelCase(part)...)
		}
	}
	return result
}

// splitCamelCase breaks s at each letter that starts a new capitalized run,
// treating a capital surrounded by other capitals (an acronym) as part of
// the run it's adjacent to rather than starting its own single-letter part.
func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevLower || nextLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func filterStopWords(tokens []string) []string {
	var kept []string
	for _, t := range tokens {
		if !codeStopWords[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

// foldToAlnum lowercases text and drops everything but letters and digits,
// so trigram hashing is insensitive to whitespace and punctuation layout.
func foldToAlnum(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trigrams(s string) []string {
	if len(s) < ngramSize {
		return []string{}
	}
	grams := make([]string, 0, len(s)-ngramSize+1)
	for i := 0; i <= len(s)-ngramSize; i++ {
		grams = append(grams, s[i:i+ngramSize])
	}
	return grams
}

// hashBucket maps s to a vector index via FNV-64.
func hashBucket(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch embeds each text in order, failing the whole batch if any one fails.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding width.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName identifies this provider for config and log output.
func (e *StaticEmbedder) ModelName() string {
	return "static"
}

// Available is always true until Close, since there's no external service
// to be unavailable.
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed; idempotent.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
