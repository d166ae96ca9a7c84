// Package merkle builds and diffs a Merkle-tree summary of a project's
// file contents, letting the indexer detect added, removed, and modified
// files without re-hashing or re-chunking anything unchanged.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node is one entry of the flat Merkle summary: a file or a directory.
// Directory children are sorted alphabetically by path; file nodes carry
// no children.
type Node struct {
	Path     string   `json:"path"`
	Hash     string   `json:"hash"`
	IsFile   bool     `json:"is_file"`
	Children []string `json:"children"`
}

// FileHash is a single (path, content-hash) input to Build.
type FileHash struct {
	Path string
	Hash string
}

// Build constructs the flat Merkle node list for files. Paths are
// forward-slash, root-relative. Directory hashes are computed bottom-up:
// each directory's hash is sha256 of its sorted children's hashes,
// concatenated in that order. The sentinel root directory has path ".".
func Build(files []FileHash) []Node {
	fileHash := make(map[string]string, len(files))
	dirChildren := make(map[string]map[string]bool)
	dirChildren["."] = map[string]bool{}

	for _, f := range files {
		fileHash[f.Path] = f.Hash
		registerAncestors(f.Path, dirChildren)
	}

	var hashOf func(path string) string
	hashOf = func(path string) string {
		if h, ok := fileHash[path]; ok {
			return h
		}
		children := sortedKeys(dirChildren[path])

		var sb strings.Builder
		for _, c := range children {
			sb.WriteString(hashOf(c))
		}
		sum := sha256.Sum256([]byte(sb.String()))
		return hex.EncodeToString(sum[:])
	}

	allDirs := sortedKeys(dirChildrenToSet(dirChildren))
	nodes := make([]Node, 0, len(allDirs)+len(files))

	for _, dir := range allDirs {
		children := sortedKeys(dirChildren[dir])
		nodes = append(nodes, Node{
			Path:     dir,
			Hash:     hashOf(dir),
			IsFile:   false,
			Children: children,
		})
	}
	for path, hash := range fileHash {
		nodes = append(nodes, Node{
			Path:     path,
			Hash:     hash,
			IsFile:   true,
			Children: []string{},
		})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	return nodes
}

// registerAncestors walks from a file path up to the sentinel root,
// recording each directory's direct child.
func registerAncestors(path string, dirChildren map[string]map[string]bool) {
	child := path
	for {
		dir := parentOf(child)
		if _, ok := dirChildren[dir]; !ok {
			dirChildren[dir] = map[string]bool{}
		}
		dirChildren[dir][child] = true
		if dir == "." {
			return
		}
		child = dir
	}
}

// parentOf returns child's parent directory, or "." if child is already
// at the root.
func parentOf(child string) string {
	idx := strings.LastIndex(child, "/")
	if idx < 0 {
		return "."
	}
	return child[:idx]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dirChildrenToSet(dirChildren map[string]map[string]bool) map[string]bool {
	set := make(map[string]bool, len(dirChildren))
	for dir := range dirChildren {
		set[dir] = true
	}
	return set
}

// Diff compares old and new flat node lists and reports which file paths
// were added, removed, or modified. Directory nodes are ignored; only the
// file-only path→hash projection is compared.
func Diff(oldNodes, newNodes []Node) (added, removed, modified []string) {
	oldFiles := fileHashes(oldNodes)
	newFiles := fileHashes(newNodes)

	for path, newHash := range newFiles {
		oldHash, existed := oldFiles[path]
		if !existed {
			added = append(added, path)
			continue
		}
		if oldHash != newHash {
			modified = append(modified, path)
		}
	}
	for path := range oldFiles {
		if _, stillExists := newFiles[path]; !stillExists {
			removed = append(removed, path)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(modified)
	return added, removed, modified
}

func fileHashes(nodes []Node) map[string]string {
	m := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n.IsFile {
			m[n.Path] = n.Hash
		}
	}
	return m
}

// Serialize marshals nodes to the JSON array form stored on disk.
func Serialize(nodes []Node) ([]byte, error) {
	data, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize merkle summary: %w", err)
	}
	return data, nil
}

// Parse unmarshals the JSON array form produced by Serialize.
func Parse(data []byte) ([]Node, error) {
	var nodes []Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse merkle summary: %w", err)
	}
	return nodes, nil
}

// Load reads and parses the summary file at path. A missing or
// unparseable file is treated as "no prior index": it returns a nil node
// list rather than an error, so every present file is effectively new on
// the first run.
func Load(path string) []Node {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	nodes, err := Parse(data)
	if err != nil {
		return nil
	}
	return nodes
}

// Save serializes nodes and writes them to path, creating its parent
// directory if needed.
func Save(path string, nodes []Node) error {
	data, err := Serialize(nodes)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create merkle summary directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write merkle summary to %s: %w", path, err)
	}
	return nil
}
