package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vectorgrep/vgrep/internal/gitignore"
)

// gitignoreCacheSize bounds the number of parsed gitignore matchers kept
// in memory across a single scan, preventing unbounded growth on
// repositories with many nested .gitignore files.
const gitignoreCacheSize = 1000

// Scanner discovers indexable files in a project directory.
type Scanner struct {
	builtins       *gitignore.Matcher
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex
}

// New creates a new Scanner instance.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{builtins: gitignore.NewWithBuiltins(), gitignoreCache: cache}, nil
}

// Scan walks root and returns root-relative, forward-slash, sorted
// candidate paths whose extension appears in extensions, skipping files
// matched by any .gitignore encountered along the way, binary files, and
// files over DefaultMaxFileSize. An empty extensions list matches every
// extension.
func (s *Scanner) Scan(ctx context.Context, root string, extensions []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[ext] = true
	}

	var paths []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return nil // skip entries we can't access
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if defaultExcludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			if s.isGitignored(relPath, absRoot, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if len(extSet) > 0 && !extSet[filepath.Ext(relPath)] {
			return nil
		}

		if s.isGitignored(relPath, absRoot, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > DefaultMaxFileSize {
			return nil
		}

		if isBinaryFile(path) {
			return nil
		}

		paths = append(paths, relPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// isGitignored checks relPath against vgrep's own built-in artifact
// patterns, the root .gitignore, and every nested .gitignore between the
// root and relPath's directory.
func (s *Scanner) isGitignored(relPath, absRoot string, isDir bool) bool {
	if s.builtins.Match(relPath, isDir) {
		return true
	}
	if m := s.getGitignoreMatcher(absRoot, ""); m != nil && m.Match(relPath, isDir) {
		return true
	}

	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}

	parts := strings.Split(dir, "/")
	currentDir := absRoot
	currentBase := ""

	for _, part := range parts {
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}

		if m := s.getGitignoreMatcher(currentDir, currentBase); m != nil && m.Match(relPath, isDir) {
			return true
		}
	}

	return false
}

// getGitignoreMatcher gets or creates a gitignore matcher for dir,
// caching parsed matchers keyed by absolute directory.
func (s *Scanner) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil
	}

	matcher = gitignore.New()
	if err := matcher.AddFromFile(gitignorePath, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()

	return matcher
}

// isBinaryFile reports whether path looks binary by checking the first
// 512 bytes for a null byte.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}

	return bytes.Contains(buf[:n], []byte{0})
}
