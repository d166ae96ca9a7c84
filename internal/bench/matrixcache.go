package bench

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// MatrixCachePath derives the on-disk path for an embedding matrix keyed
// by (dataset, split, provider, count), per spec §4.7.
func MatrixCachePath(cacheDir, dataset, split, provider string, count int) string {
	key := fmt.Sprintf("%s_%s_%s_%d.bin", sanitize(dataset), sanitize(split), sanitize(provider), count)
	return filepath.Join(cacheDir, key)
}

func sanitize(s string) string {
	return nonAlnum.ReplaceAllString(s, "-")
}

// SaveMatrix writes vectors to path as raw little-endian float32s, row
// by row (dim × count total values).
func SaveMatrix(path string, vectors [][]float32) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create matrix cache directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create matrix file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, vec := range vectors {
		for _, v := range vec {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("failed to write matrix values: %w", err)
			}
		}
	}
	return w.Flush()
}

// LoadMatrix reads a previously saved matrix, reconstructing count rows
// of dim float32s each. Returns an error if the file is missing, sized
// wrong, or otherwise unreadable; Harness.embedMatrix treats any such
// error as a cache miss and re-embeds.
func LoadMatrix(path string, dim, count int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat matrix file: %w", err)
	}
	want := int64(dim) * int64(count) * 4
	if info.Size() != want {
		return nil, fmt.Errorf("matrix file %s has size %d, expected %d for dim=%d count=%d", path, info.Size(), want, dim, count)
	}

	r := bufio.NewReader(f)
	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, &vec); err != nil {
			return nil, fmt.Errorf("failed to read matrix row %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
