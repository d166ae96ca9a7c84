// Package config loads and validates vgrep's configuration: the indexing
// root, the file extensions the scanner admits, the vector store endpoint,
// the embedding provider selection, chunk size targets, and search defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default chunk-size and search targets, per spec.md §6.
const (
	DefaultMaxChunkTokens = 512
	DefaultMinChunkTokens = 30
	DefaultTopK           = 10
	DefaultCachePath      = ".vgrep/embedcache.json"
	DefaultCollectionName = "vgrep"
)

// defaultExtensions are admitted by the scanner when the config omits the
// field entirely.
var defaultExtensions = []string{".go", ".py", ".js", ".ts", ".tsx", ".jsx"}

// Config mirrors the schema recognized by spec.md §6.
type Config struct {
	// RootDir is the absolute path of the indexing domain.
	RootDir string `yaml:"root_dir" json:"root_dir"`

	// Extensions is the set of file-extension strings the scanner admits.
	Extensions []string `yaml:"extensions" json:"extensions"`

	// QdrantURL and CollectionName identify the remote vector-store
	// endpoint and namespace. An empty QdrantURL selects the embedded
	// HNSW store instead.
	QdrantURL      string `yaml:"qdrant_url" json:"qdrant_url"`
	CollectionName string `yaml:"collection_name" json:"collection_name"`

	// EmbeddingModel selects the embedding provider's model name.
	// OpenAIAPIKey is passed through to an OpenAI-compatible provider;
	// it is left out of JSON output, but WriteYAML writes it like any
	// other field.
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`
	OpenAIAPIKey   string `yaml:"openai_api_key" json:"-"`

	// MaxChunkTokens and MinChunkTokens are the chunker's target ceiling
	// and floor (spec.md §4.1).
	MaxChunkTokens int `yaml:"max_chunk_tokens" json:"max_chunk_tokens"`
	MinChunkTokens int `yaml:"min_chunk_tokens" json:"min_chunk_tokens"`

	// CachePath is the embedding cache file path, relative to RootDir.
	CachePath string `yaml:"cache_path" json:"cache_path"`

	// TopK is the default search result cut-off.
	TopK int `yaml:"top_k" json:"top_k"`

	// LogLevel configures internal/logging's slog handler.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Extensions:     append([]string(nil), defaultExtensions...),
		CollectionName: DefaultCollectionName,
		MaxChunkTokens: DefaultMaxChunkTokens,
		MinChunkTokens: DefaultMinChunkTokens,
		CachePath:      DefaultCachePath,
		TopK:           DefaultTopK,
		LogLevel:       "info",
	}
}

// Load loads configuration for the project rooted at dir, applying
// settings in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.vgrep.yaml in dir)
//  3. Environment variables (highest precedence)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	cfg.RootDir = absDir

	if err := cfg.loadFromFile(absDir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .vgrep.yaml or
// .vgrep.yml in dir. A missing file is not an error; defaults apply.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".vgrep.yaml", ".vgrep.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file, preserving
// RootDir (the file never overrides the directory it was loaded from).
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if other.QdrantURL != "" {
		c.QdrantURL = other.QdrantURL
	}
	if other.CollectionName != "" {
		c.CollectionName = other.CollectionName
	}
	if other.EmbeddingModel != "" {
		c.EmbeddingModel = other.EmbeddingModel
	}
	if other.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = other.OpenAIAPIKey
	}
	if other.MaxChunkTokens != 0 {
		c.MaxChunkTokens = other.MaxChunkTokens
	}
	if other.MinChunkTokens != 0 {
		c.MinChunkTokens = other.MinChunkTokens
	}
	if other.CachePath != "" {
		c.CachePath = other.CachePath
	}
	if other.TopK != 0 {
		c.TopK = other.TopK
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies the advisory environment variables spec.md §6
// recognizes. Env wins over file, matching the teacher's layering note
// that env vars are the highest-precedence source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INDEX_DIR"); v != "" {
		if abs, err := filepath.Abs(v); err == nil {
			c.RootDir = abs
		}
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.QdrantURL = v
	}
	if v := os.Getenv("QDRANT_COLLECTION"); v != "" {
		c.CollectionName = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("VGREP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("VGREP_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.TopK = k
		}
	}
}

// Validate validates the configuration and returns an error describing
// the first invalid field it finds.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("root_dir must be set")
	}
	if info, err := os.Stat(c.RootDir); err != nil || !info.IsDir() {
		return fmt.Errorf("root_dir must be an existing directory, got %q", c.RootDir)
	}
	if c.MaxChunkTokens <= 0 {
		return fmt.Errorf("max_chunk_tokens must be positive, got %d", c.MaxChunkTokens)
	}
	if c.MinChunkTokens < 0 {
		return fmt.Errorf("min_chunk_tokens must be non-negative, got %d", c.MinChunkTokens)
	}
	if c.MinChunkTokens >= c.MaxChunkTokens {
		return fmt.Errorf("min_chunk_tokens (%d) must be less than max_chunk_tokens (%d)", c.MinChunkTokens, c.MaxChunkTokens)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.CachePath == "" {
		return fmt.Errorf("cache_path must be set")
	}
	if strings.TrimSpace(c.CollectionName) == "" {
		return fmt.Errorf("collection_name must be set")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AbsCachePath returns CachePath resolved against RootDir.
func (c *Config) AbsCachePath() string {
	if filepath.IsAbs(c.CachePath) {
		return c.CachePath
	}
	return filepath.Join(c.RootDir, c.CachePath)
}

// FindProjectRoot walks up from startDir looking for a .git directory or
// a .vgrep.yaml/.yml file, returning the first directory that has one.
// If neither marker is found before reaching the filesystem root, it
// returns startDir's absolute path unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".vgrep.yaml")) ||
			fileExists(filepath.Join(currentDir, ".vgrep.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
