package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry maps file extensions and language names to the grammar
// tables the segmenter needs: which tree-sitter grammar to parse with, and
// which of its node types count as a function, a container, a constant, and
// so on.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// languageSpec is the table-driven description of one grammar: its node
// type vocabulary plus the tree-sitter grammar(s) it parses with. A spec
// with more than one name/extension pair (TSX reusing TypeScript's tables,
// JSX reusing JavaScript's) shares a single LanguageConfig body across
// several registry entries.
type languageSpec struct {
	names      []string // registry name per entry, same length as grammars
	extensions [][]string
	grammars   []*sitter.Language
	body       LanguageConfig
}

func builtinLanguageSpecs() []languageSpec {
	return []languageSpec{
		{
			names:      []string{"go"},
			extensions: [][]string{{".go"}},
			grammars:   []*sitter.Language{golang.GetLanguage()},
			body: LanguageConfig{
				FunctionTypes: []string{"function_declaration"},
				MethodTypes:   []string{"method_declaration"},
				TypeDefTypes:  []string{"type_declaration"},
				ConstantTypes: []string{"const_declaration"},
				VariableTypes: []string{"var_declaration"},
				NameField:     "name",
			},
		},
		{
			// TypeScript and TSX share grammar tables; TSX just parses with
			// its own grammar since JSX syntax needs a dedicated parser.
			names:      []string{"typescript", "tsx"},
			extensions: [][]string{{".ts"}, {".tsx"}},
			grammars:   []*sitter.Language{typescript.GetLanguage(), tsx.GetLanguage()},
			body: LanguageConfig{
				FunctionTypes:  []string{"function_declaration"},
				MethodTypes:    []string{"method_definition"},
				ClassTypes:     []string{"class_declaration"},
				InterfaceTypes: []string{"interface_declaration"},
				TypeDefTypes:   []string{"type_alias_declaration"},
				ConstantTypes:  []string{"lexical_declaration"}, // const and let
				VariableTypes:  []string{"variable_declaration"},
				NameField:      "name",
			},
		},
		{
			// JSX parses with the plain JavaScript grammar.
			names:      []string{"javascript", "jsx"},
			extensions: [][]string{{".js", ".mjs"}, {".jsx"}},
			grammars:   []*sitter.Language{javascript.GetLanguage(), javascript.GetLanguage()},
			body: LanguageConfig{
				FunctionTypes: []string{"function_declaration", "function"},
				MethodTypes:   []string{"method_definition"},
				ClassTypes:    []string{"class_declaration"},
				ConstantTypes: []string{"lexical_declaration"},
				VariableTypes: []string{"variable_declaration"},
				NameField:     "name",
			},
		},
		{
			names:      []string{"python"},
			extensions: [][]string{{".py"}},
			grammars:   []*sitter.Language{python.GetLanguage()},
			body: LanguageConfig{
				FunctionTypes: []string{"function_definition"},
				ClassTypes:    []string{"class_definition"},
				VariableTypes: []string{"assignment"}, // module-level assignments
				NameField:     "name",
			},
		},
	}
}

// NewLanguageRegistry builds a registry pre-populated with vgrep's built-in
// grammar tables for Go, TypeScript/TSX, JavaScript/JSX, and Python.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	for _, spec := range builtinLanguageSpecs() {
		for i, name := range spec.names {
			config := spec.body
			config.Name = name
			config.Extensions = spec.extensions[i]
			r.registerLanguage(&config, spec.grammars[i])
		}
	}
	return r
}

// GetByExtension returns the language configuration registered for ext
// (case-insensitive, with or without a leading dot).
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	langName, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[langName]
	return config, ok
}

// GetByName returns the language configuration registered under name.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter grammar registered under name.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns every file extension the registry recognizes.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

// defaultRegistry is shared by every Segmenter that doesn't supply its own,
// since the built-in grammar tables are immutable after construction.
var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the package-wide language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
