package embed

// PackBatches greedily groups texts into batches that respect both
// maxCount (a hard cap on texts per batch) and maxTokens (a conservative
// per-batch token budget, estimated at PackCharsPerToken chars/token). A
// single text that alone exceeds maxTokens is sent in its own batch
// rather than blocking the rest of the input; the provider is expected
// to truncate it.
func PackBatches(texts []string, maxCount, maxTokens int) [][]string {
	if len(texts) == 0 {
		return nil
	}
	if maxCount <= 0 {
		maxCount = DefaultBatchSize
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxBatchTokens
	}

	var batches [][]string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, text := range texts {
		tokens := tokenEstimate(text)

		if tokens >= maxTokens {
			flush()
			batches = append(batches, []string{text})
			continue
		}

		if len(current) >= maxCount || currentTokens+tokens > maxTokens {
			flush()
		}
		current = append(current, text)
		currentTokens += tokens
	}
	flush()

	return batches
}

func tokenEstimate(text string) int {
	n := len(text) / PackCharsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
