// Package scanner discovers indexable source files under a project root,
// honoring .gitignore rules and a caller-supplied extension allowlist.
package scanner

// DefaultMaxFileSize is the default maximum file size considered for
// indexing (10MB). Larger files are skipped rather than erroring, since
// a single oversized generated file shouldn't abort an entire scan.
const DefaultMaxFileSize = 10 * 1024 * 1024

// defaultExcludeDirs are directory names skipped regardless of
// .gitignore, since they are never worth walking into.
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	".vgrep":       true,
}
