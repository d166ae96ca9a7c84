package chunk

import (
	"strings"
)

// SymbolExtractor turns a parsed Tree into the list of declarations it
// contains, resolving each one's name, doc comment, and single-line
// signature from the surrounding AST shape.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor builds an extractor against the package's default
// language registry.
func NewSymbolExtractor() *SymbolExtractor {
	return NewSymbolExtractorWithRegistry(DefaultRegistry())
}

// NewSymbolExtractorWithRegistry builds an extractor against a caller-owned
// registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// symbolKindTable maps a LanguageConfig field accessor to the SymbolType its
// node types represent, in the priority order a node should be checked
// against (a node can only ever match the first list it appears in).
var symbolKindTable = []struct {
	symType SymbolType
	field   func(*LanguageConfig) []string
}{
	{SymbolTypeFunction, func(c *LanguageConfig) []string { return c.FunctionTypes }},
	{SymbolTypeMethod, func(c *LanguageConfig) []string { return c.MethodTypes }},
	{SymbolTypeClass, func(c *LanguageConfig) []string { return c.ClassTypes }},
	{SymbolTypeInterface, func(c *LanguageConfig) []string { return c.InterfaceTypes }},
	{SymbolTypeType, func(c *LanguageConfig) []string { return c.TypeDefTypes }},
	{SymbolTypeConstant, func(c *LanguageConfig) []string { return c.ConstantTypes }},
	{SymbolTypeVariable, func(c *LanguageConfig) []string { return c.VariableTypes }},
}

// Extract walks tree and returns every declaration it recognizes for the
// tree's language. Returns an empty (never nil) slice for a nil tree, a nil
// root, or a language the registry doesn't know, so callers never have to
// special-case a nil result.
func (e *SymbolExtractor) Extract(tree *Tree, source []byte) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	symbols := []*Symbol{}
	tree.Root.Walk(func(n *Node) bool {
		if sym := e.symbolAt(n, source, config, tree.Language); sym != nil {
			symbols = append(symbols, sym)
		}
		return true
	})
	return symbols
}

// symbolAt classifies n against config's node-type tables and, if it
// matches, extracts its name/doc comment/signature. Falls through to
// extractSpecialSymbol for constructs the tables can't describe directly
// (JS/TS `const f = () => {}`).
func (e *SymbolExtractor) symbolAt(n *Node, source []byte, config *LanguageConfig, language string) *Symbol {
	symType, ok := classifySymbolKind(n.Type, config)
	if !ok {
		return e.extractSpecialSymbol(n, source, language)
	}

	name := e.extractName(n, source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Type:       symType,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  e.extractSignature(n, source, symType, language),
		DocComment: e.extractDocComment(n, source, language),
	}
}

func classifySymbolKind(nodeType string, config *LanguageConfig) (SymbolType, bool) {
	for _, entry := range symbolKindTable {
		if isIn(nodeType, entry.field(config)) {
			return entry.symType, true
		}
	}
	return "", false
}

// extractName resolves n's declared identifier using per-language grammar
// knowledge: each grammar nests its name under a different child node type.
func (e *SymbolExtractor) extractName(n *Node, source []byte, config *LanguageConfig, language string) string {
	switch language {
	case "go":
		return e.extractGoName(n, source)
	case "typescript", "tsx":
		return e.extractTypeScriptName(n, source)
	case "javascript", "jsx":
		return e.extractJavaScriptName(n, source)
	case "python":
		return firstChildOfType(n, source, "identifier")
	default:
		return firstChildOfType(n, source, "identifier")
	}
}

func firstChildOfType(n *Node, source []byte, childType string) string {
	for _, child := range n.Children {
		if child.Type == childType {
			return child.GetContent(source)
		}
	}
	return ""
}

// firstGrandchildOfType looks one level deeper, inside the first child of
// wrapperType, for a grandchild of childType. Used for the
// spec/declarator wrapper shapes Go and JS/TS share (const_spec/var_spec,
// variable_declarator).
func firstGrandchildOfType(n *Node, source []byte, wrapperType, childType string) string {
	for _, child := range n.Children {
		if child.Type != wrapperType {
			continue
		}
		if name := firstChildOfType(child, source, childType); name != "" {
			return name
		}
	}
	return ""
}

func (e *SymbolExtractor) extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		return firstChildOfType(n, source, "identifier")
	case "method_declaration":
		return firstChildOfType(n, source, "field_identifier")
	case "type_declaration":
		for _, child := range n.Children {
			if child.Type == "type_spec" {
				if name := firstChildOfType(child, source, "type_identifier"); name != "" {
					return name
				}
			}
		}
	case "const_declaration":
		return firstGrandchildOfType(n, source, "const_spec", "identifier")
	case "var_declaration":
		return firstGrandchildOfType(n, source, "var_spec", "identifier")
	}
	return ""
}

func (e *SymbolExtractor) extractTypeScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		if name := firstGrandchildOfType(n, source, "variable_declarator", "identifier"); name != "" {
			return name
		}
	}
	if name := firstChildOfType(n, source, "identifier"); name != "" {
		return name
	}
	if name := firstChildOfType(n, source, "type_identifier"); name != "" {
		return name
	}
	return firstChildOfType(n, source, "property_identifier") // method_definition
}

func (e *SymbolExtractor) extractJavaScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		if name := firstGrandchildOfType(n, source, "variable_declarator", "identifier"); name != "" {
			return name
		}
	}
	if name := firstChildOfType(n, source, "identifier"); name != "" {
		return name
	}
	return firstChildOfType(n, source, "property_identifier") // method_definition
}

// extractSpecialSymbol recognizes declarations whose symbol-ness isn't
// captured by a single node type: JS/TS `const f = () => {}` and
// `const f = function() {}`, where the function lives inside a variable
// declarator rather than being its own named declaration node.
func (e *SymbolExtractor) extractSpecialSymbol(n *Node, source []byte, language string) *Symbol {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			return e.extractAssignedFunctionSymbol(n, source)
		}
	}
	return nil
}

var jsFunctionValueTypes = map[string]bool{
	"arrow_function": true, "function": true, "function_expression": true,
}

func (e *SymbolExtractor) extractAssignedFunctionSymbol(n *Node, source []byte) *Symbol {
	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}

		var name string
		var hasFunction bool
		for _, grandchild := range child.Children {
			if grandchild.Type == "identifier" {
				name = grandchild.GetContent(source)
			}
			if jsFunctionValueTypes[grandchild.Type] {
				hasFunction = true
			}
		}

		if name != "" && hasFunction {
			return &Symbol{
				Name:      name,
				Type:      SymbolTypeFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Signature: e.extractFunctionSignature(n.GetContent(source), "javascript"),
			}
		}
	}
	return nil
}

// extractDocComment looks one line above n for a `//`-style comment. Python
// doc comments are docstrings inside the body rather than a preceding
// comment line, so Python never produces one here.
func (e *SymbolExtractor) extractDocComment(n *Node, source []byte, language string) string {
	if language == "python" || n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}

	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))
	if strings.HasPrefix(prevLine, "//") {
		return strings.TrimPrefix(prevLine, "//")
	}
	return ""
}

// extractSignature extracts just the declaration line of n (up to the
// opening brace, or the whole first line for brace-less grammars), so an
// embedding model sees a symbol's interface without its full body.
func (e *SymbolExtractor) extractSignature(n *Node, source []byte, symbolType SymbolType, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}

	switch symbolType {
	case SymbolTypeFunction, SymbolTypeMethod:
		return e.extractFunctionSignature(content, language)
	case SymbolTypeClass, SymbolTypeInterface, SymbolTypeType:
		return e.extractTypeSignature(content, language)
	}
	return ""
}

func firstLineUpToBrace(content string) string {
	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}

func (e *SymbolExtractor) extractFunctionSignature(content, language string) string {
	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		return firstLineUpToBrace(content)
	default: // python: keep the full `def name(params):` line including colon
		return strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	}
}

func (e *SymbolExtractor) extractTypeSignature(content, language string) string {
	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx":
		return firstLineUpToBrace(content)
	default: // python: `class Name(Parent):`
		return strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	}
}
