package vectorstore

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWStore implements Store with an in-process coder/hnsw graph. Unlike a
// bare vector index it also tracks each record's payload and indexes
// payload paths, so DeleteByPath can find every chunk belonging to a file
// without a linear scan.
type HNSWStore struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	dim      int
	metric   string
	savePath string

	idMap   map[string]uint64 // record id -> internal key
	keyMap  map[uint64]string // internal key -> record id
	payload map[uint64]Payload
	byPath  map[string]map[uint64]bool // path -> set of keys
	nextKey uint64

	closed bool
}

// hnswMeta is the gob-persisted side-table: everything the graph itself
// doesn't know how to serialize.
type hnswMeta struct {
	IDMap   map[string]uint64
	Payload map[uint64]Payload
	NextKey uint64
	Dim     int
	Metric  string
}

// NewHNSWStore creates an empty HNSW-backed store. savePath is where
// Save/Load persist state; pass "" to keep the store purely in-memory.
func NewHNSWStore(savePath string) *HNSWStore {
	return &HNSWStore{
		savePath: savePath,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		payload:  make(map[uint64]Payload),
		byPath:   make(map[string]map[uint64]bool),
	}
}

func (s *HNSWStore) EnsureCollection(ctx context.Context, dim int, metric string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graph != nil {
		if s.dim != dim {
			return fmt.Errorf("collection already initialized with dimension %d, got %d", s.dim, dim)
		}
		return nil
	}

	graph := hnsw.NewGraph[uint64]()
	switch metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		metric = "cos"
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	s.graph = graph
	s.dim = dim
	s.metric = metric

	if s.savePath != "" {
		_ = s.loadLocked() // best-effort: a missing save predates every first run
	}
	return nil
}

func (s *HNSWStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if s.graph == nil {
		return fmt.Errorf("collection not initialized")
	}

	for _, r := range records {
		if len(r.Vector) != s.dim {
			return ErrDimensionMismatch{Expected: s.dim, Got: len(r.Vector)}
		}

		if existingKey, exists := s.idMap[r.ID]; exists {
			s.forgetLocked(existingKey)
		}

		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		if s.metric == "cos" {
			normalizeInPlace(vec)
		}

		key := s.nextKey
		s.nextKey++
		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[r.ID] = key
		s.keyMap[key] = r.ID
		s.payload[key] = r.Payload
		s.indexPathLocked(r.Payload.Path, key)
	}
	return nil
}

func (s *HNSWStore) DeleteByPath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.byPath[path] {
		id := s.keyMap[key]
		s.forgetLocked(key)
		delete(s.idMap, id)
	}
	delete(s.byPath, path)
	return nil
}

// forgetLocked drops key from every side-table without touching the graph
// itself: coder/hnsw's own Delete can corrupt the graph when removing its
// last node, so stale entries are left as orphans in the graph and simply
// excluded from results by the key/payload maps no longer naming them.
func (s *HNSWStore) forgetLocked(key uint64) {
	if p, ok := s.payload[key]; ok {
		if set := s.byPath[p.Path]; set != nil {
			delete(set, key)
			if len(set) == 0 {
				delete(s.byPath, p.Path)
			}
		}
	}
	delete(s.keyMap, key)
	delete(s.payload, key)
}

func (s *HNSWStore) indexPathLocked(path string, key uint64) {
	set, ok := s.byPath[path]
	if !ok {
		set = map[uint64]bool{}
		s.byPath[path] = set
	}
	set[key] = true
}

func (s *HNSWStore) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if s.graph == nil || s.graph.Len() == 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, ErrDimensionMismatch{Expected: s.dim, Got: len(vector)}
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	if s.metric == "cos" {
		normalizeInPlace(query)
	}

	nodes := s.graph.Search(query, k)
	results := make([]Result, 0, len(nodes))
	for _, n := range nodes {
		id, ok := s.keyMap[n.Key]
		if !ok {
			continue // orphaned by a prior delete/overwrite
		}
		distance := s.graph.Distance(query, n.Value)
		results = append(results, Result{
			ID:      id,
			Score:   distanceToScore(distance, s.metric),
			Payload: s.payload[n.Key],
		})
	}
	return results, nil
}

func (s *HNSWStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap), nil
}

// DropCollection discards the graph and every side-table, then removes any
// persisted files. Dropping a store with nothing initialized is a no-op.
func (s *HNSWStore) DropCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = nil
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.payload = make(map[uint64]Payload)
	s.byPath = make(map[string]map[uint64]bool)
	s.nextKey = 0

	if s.savePath == "" {
		return nil
	}
	for _, p := range []string{s.savePath, s.savePath + ".meta"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// Close saves (if a save path was configured) and releases the store.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	s.mu.Unlock()

	if alreadyClosed {
		return nil
	}
	if s.savePath == "" {
		return nil
	}
	return s.Save()
}

// Save persists the graph and its side-tables to savePath, atomically.
func (s *HNSWStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return nil
	}

	if dir := filepath.Dir(s.savePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create vector store directory: %w", err)
		}
	}

	tmpGraphPath := s.savePath + ".tmp"
	f, err := os.Create(tmpGraphPath)
	if err != nil {
		return fmt.Errorf("failed to create graph temp file: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpGraphPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpGraphPath)
		return fmt.Errorf("failed to close graph temp file: %w", err)
	}
	if err := os.Rename(tmpGraphPath, s.savePath); err != nil {
		_ = os.Remove(tmpGraphPath)
		return fmt.Errorf("failed to rename graph file: %w", err)
	}

	return s.saveMeta()
}

func (s *HNSWStore) saveMeta() error {
	metaPath := s.savePath + ".meta"
	tmpPath := metaPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create metadata temp file: %w", err)
	}
	meta := hnswMeta{IDMap: s.idMap, Payload: s.payload, NextKey: s.nextKey, Dim: s.dim, Metric: s.metric}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close metadata temp file: %w", err)
	}
	return os.Rename(tmpPath, metaPath)
}

// loadLocked restores a previously saved graph and side-tables. Called
// with s.mu already held by EnsureCollection. A missing save is not an
// error: it means this is the first run.
func (s *HNSWStore) loadLocked() error {
	metaPath := s.savePath + ".meta"
	metaFile, err := os.Open(metaPath)
	if err != nil {
		return err
	}
	defer func() { _ = metaFile.Close() }()

	var meta hnswMeta
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	graphFile, err := os.Open(s.savePath)
	if err != nil {
		return fmt.Errorf("failed to open graph file: %w", err)
	}
	defer func() { _ = graphFile.Close() }()

	if err := s.graph.Import(bufio.NewReader(graphFile)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}

	s.idMap = meta.IDMap
	s.payload = meta.Payload
	s.nextKey = meta.NextKey
	s.dim = meta.Dim
	s.metric = meta.Metric

	s.keyMap = make(map[uint64]string, len(s.idMap))
	s.byPath = make(map[string]map[uint64]bool)
	for id, key := range s.idMap {
		s.keyMap[key] = id
		s.indexPathLocked(s.payload[key].Path, key)
	}
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1 / (1 + distance)
	default: // cosine distance is 1-similarity
		return 1 - distance
	}
}
