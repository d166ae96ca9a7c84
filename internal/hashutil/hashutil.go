// Package hashutil computes content hashes used as identity for files and
// chunks throughout vgrep: a file's content hash drives Merkle diffing, and
// a chunk's content hash is its cache key and id.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SHA256File streams path's contents through SHA-256 and returns the hex
// digest. No line-ending or whitespace normalization is applied; the hash
// reflects the file's bytes exactly as stored.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read file for hashing: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Text returns the hex SHA-256 digest of text.
func SHA256Text(text []byte) string {
	sum := sha256.Sum256(text)
	return hex.EncodeToString(sum[:])
}
