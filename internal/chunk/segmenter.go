package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/vectorgrep/vgrep/internal/hashutil"
)

// maxRecursionDepth bounds the oversize-expansion recursion so a
// pathological AST (deeply nested containers, a function whose only
// statement is another oversized function) can never loop forever. In
// practice recursion bottoms out in two or three levels: container/function
// splitting shrinks the line range every time it recurses, and the
// last-resort line splitter never recurses at all.
const maxRecursionDepth = 8

// blockLineThreshold is the line count above which a logical block counts
// as "large". No code path reads it: groupFunctionBlocks re-expands any
// group whose token estimate exceeds maxChunkTokens, whatever its line count.
const blockLineThreshold = 15

// segment is an intermediate, not-yet-materialized span of lines produced
// while walking the AST. node is nil for synthetic segments (headers,
// footers, greedily grouped statement blocks, line-split parts) that don't
// correspond to a single AST node.
type segment struct {
	node      *Node
	startLine int // 0-indexed
	endLine   int // 0-indexed, inclusive
	kind      string
	symbol    string
}

// Segmenter implements the AST-aware chunking algorithm: extract top-level
// declarations, recursively split anything over maxChunkTokens along
// syntactic boundaries (container members, function statements, object
// properties), fall back to raw line splitting only when no syntactic
// boundary exists, then merge segments that ended up under minChunkTokens
// into a neighbor so no chunk is too thin to carry useful context.
type Segmenter struct {
	parser    *Parser
	registry  *LanguageRegistry
	extractor *SymbolExtractor

	maxChunkTokens int
	minChunkTokens int
}

// NewSegmenter builds a Segmenter against the package's default language
// registry, bounding chunks to [minChunkTokens, maxChunkTokens] tokens.
func NewSegmenter(maxChunkTokens, minChunkTokens int) *Segmenter {
	registry := DefaultRegistry()
	return &Segmenter{
		parser:         NewParserWithRegistry(registry),
		registry:       registry,
		extractor:      NewSymbolExtractorWithRegistry(registry),
		maxChunkTokens: maxChunkTokens,
		minChunkTokens: minChunkTokens,
	}
}

// Close releases the underlying tree-sitter parser.
func (s *Segmenter) Close() {
	s.parser.Close()
}

// SupportedExtensions returns the file extensions the registry recognizes.
func (s *Segmenter) SupportedExtensions() []string {
	return s.registry.SupportedExtensions()
}

// Chunk splits file into chunks. Files in a recognized language are parsed
// and split along AST boundaries; anything else (unrecognized extension,
// parse failure) falls back to plain line splitting of the whole file.
func (s *Segmenter) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(file.Content) == 0 {
		return nil, nil
	}

	config, ok := s.registry.GetByName(file.Language)
	if !ok {
		return s.chunkWholeFile(file), nil
	}

	tree, err := s.parser.Parse(ctx, file.Content, file.Language)
	if err != nil || tree == nil || tree.Root == nil {
		return s.chunkWholeFile(file), nil
	}

	lines := strings.Split(string(file.Content), "\n")
	source := file.Content

	top := s.extractSegments(tree.Root, recognizedTopLevelKinds(config), config, source)
	if len(top) == 0 {
		return nil, nil
	}

	var expanded []*segment
	for _, seg := range top {
		expanded = append(expanded, s.expandOversize(seg, config, source, lines, 0)...)
	}

	merged := s.mergeSmallSegments(expanded, lines)
	return s.materialize(merged, file, lines), nil
}

// chunkWholeFile handles files with no AST to lean on: it line-splits the
// entire file if it's over budget, or emits it as a single chunk otherwise.
func (s *Segmenter) chunkWholeFile(file *FileInput) []*Chunk {
	lines := strings.Split(string(file.Content), "\n")
	seg := &segment{startLine: 0, endLine: len(lines) - 1, kind: "text"}

	var segs []*segment
	if s.tokenEstimate(lines, seg.startLine, seg.endLine) > s.maxChunkTokens {
		segs = s.lineSplitSegment(seg, lines)
	} else {
		segs = []*segment{seg}
	}
	return s.materialize(segs, file, lines)
}

// tokenEstimate approximates the token count of lines[start:end+1] as
// ceil(charCount/4), counting a trailing newline for every line.
func (s *Segmenter) tokenEstimate(lines []string, start, end int) int {
	chars := 0
	for i := start; i <= end && i >= 0 && i < len(lines); i++ {
		chars += len(lines[i]) + 1
	}
	return (chars + 3) / 4
}

// recognizedTopLevelKinds is the set of AST node types extractSegments
// treats as chunkable top-level declarations for config's language.
func recognizedTopLevelKinds(config *LanguageConfig) map[string]bool {
	kinds := map[string]bool{}
	addAll(kinds, config.FunctionTypes, config.MethodTypes, config.ClassTypes,
		config.InterfaceTypes, config.TypeDefTypes, config.ConstantTypes, config.VariableTypes)
	addAll(kinds, []string{
		"export_statement", "import_statement", "import_from_statement",
		"lexical_declaration", "variable_declaration", "enum_declaration",
		"namespace_declaration", "module_declaration", "abstract_class_declaration",
		"generator_function_declaration",
	})
	return kinds
}

// memberKinds is the set of node types extractSegments treats as container
// members (class/interface fields and methods) for config's language.
func memberKinds(config *LanguageConfig) map[string]bool {
	kinds := map[string]bool{}
	addAll(kinds, config.MethodTypes, config.FunctionTypes)
	addAll(kinds, []string{
		"field_declaration", "public_field_definition", "property_signature",
		"method_signature", "property_declaration",
	})
	return kinds
}

// blockStatementKinds is the set of statement-level node types extractSegments
// treats as the logical blocks inside a function body.
var blockStatementKinds = map[string]bool{
	"if_statement": true, "for_statement": true, "for_in_statement": true,
	"while_statement": true, "do_statement": true, "switch_statement": true,
	"switch_expression": true, "try_statement": true, "with_statement": true,
	"return_statement": true, "throw_statement": true, "expression_statement": true,
	"lexical_declaration": true, "variable_declaration": true, "const_declaration": true,
	"var_declaration": true, "short_var_declaration": true, "assignment_statement": true,
	"go_statement": true, "defer_statement": true, "select_statement": true,
	"labeled_statement": true,
}

func addAll(dst map[string]bool, lists ...[]string) {
	for _, list := range lists {
		for _, k := range list {
			dst[k] = true
		}
	}
}

// extractSegments walks parent's direct children, collecting those whose
// type is in kinds as segments. A run of leading comments immediately
// before a recognized child is folded into that segment's start line; any
// other non-recognized, non-punctuation child resets the pending-comment
// state so a stray comment never attaches across an unrelated statement.
func (s *Segmenter) extractSegments(parent *Node, kinds map[string]bool, config *LanguageConfig, source []byte) []*segment {
	if parent == nil {
		return nil
	}

	var segs []*segment
	pendingStart := -1

	for _, child := range parent.Children {
		if child == nil {
			continue
		}
		if child.Type == "comment" || child.Type == "line_comment" || child.Type == "block_comment" {
			if pendingStart == -1 {
				pendingStart = int(child.StartPoint.Row)
			}
			continue
		}
		if isPunctuation(child.Type) {
			continue
		}
		if !kinds[child.Type] {
			pendingStart = -1
			continue
		}

		start := int(child.StartPoint.Row)
		if pendingStart != -1 && pendingStart < start {
			start = pendingStart
		}
		segs = append(segs, &segment{
			node:      child,
			startLine: start,
			endLine:   int(child.EndPoint.Row),
			kind:      child.Type,
			symbol:    s.symbolName(child, config, file2Language(config), source),
		})
		pendingStart = -1
	}
	return segs
}

func file2Language(config *LanguageConfig) string {
	return config.Name
}

// isPunctuation reports whether t names an anonymous token ("{", "}", ",",
// ";", ...) rather than a substantive grammar production.
func isPunctuation(t string) bool {
	if t == "" {
		return false
	}
	for _, r := range t {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return false
		}
	}
	return true
}

// symbolName resolves node's declared name via the shared SymbolExtractor,
// falling back to the const-function special case (`const f = () => {}`)
// it also knows how to recognize.
func (s *Segmenter) symbolName(node *Node, config *LanguageConfig, language string, source []byte) string {
	n := unwrapExport(node)
	if name := s.extractor.extractName(n, source, config, language); name != "" {
		return name
	}
	if sym := s.extractor.extractSpecialSymbol(n, source, language); sym != nil {
		return sym.Name
	}
	return ""
}

// unwrapExport strips a TS/JS `export`/`export default` wrapper to reach
// the declaration it wraps.
func unwrapExport(node *Node) *Node {
	if node == nil || node.Type != "export_statement" {
		return node
	}
	for _, c := range node.Children {
		if c.Type != "export" && c.Type != "default" && !isPunctuation(c.Type) {
			return c
		}
	}
	return node
}

// classify determines what kind of oversize-splitting strategy applies to
// node: container (class/interface -> members), function (-> statement
// blocks), or object literal (-> properties). body is the node whose
// children hold the thing to split; it's nil when none of the three apply.
func classify(node *Node, config *LanguageConfig) (isContainer, isFunction, isObjectLiteral bool, body *Node) {
	if node == nil {
		return false, false, false, nil
	}
	n := unwrapExport(node)

	switch {
	case isIn(n.Type, config.ClassTypes) || isIn(n.Type, config.InterfaceTypes):
		return true, false, false, findBody(n)
	case isIn(n.Type, config.FunctionTypes) || isIn(n.Type, config.MethodTypes) ||
		n.Type == "arrow_function" || n.Type == "function_expression" || n.Type == "function":
		return false, true, false, findBody(n)
	}

	if decl := findDeclaratorValue(n); decl != nil {
		switch decl.Type {
		case "arrow_function", "function_expression", "function":
			return false, true, false, findBody(decl)
		case "object":
			return false, false, true, decl
		}
	}
	return false, false, false, nil
}

func findBody(n *Node) *Node {
	for _, c := range n.Children {
		switch c.Type {
		case "block", "statement_block", "class_body", "interface_body":
			return c
		}
	}
	return nil
}

// findDeclaratorValue looks inside a `const`/`let`/`var` declaration for an
// initializer that is itself a function or object literal, unwrapping a TS
// `satisfies`/`as` cast if present.
func findDeclaratorValue(n *Node) *Node {
	if n.Type != "lexical_declaration" && n.Type != "variable_declaration" {
		return nil
	}
	for _, c := range n.Children {
		if c.Type != "variable_declarator" {
			continue
		}
		for _, v := range c.Children {
			switch v.Type {
			case "arrow_function", "function_expression", "function", "object":
				return v
			case "satisfies_expression", "as_expression":
				for _, inner := range v.Children {
					if inner.Type == "object" {
						return inner
					}
				}
			}
		}
	}
	return nil
}

func isIn(t string, list []string) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// maybeFactoryBody handles the factory pattern: a function whose entire
// body is `return <nested function>`. It returns the nested function's own
// body so its statements can be split instead of treating the outer
// function as a single unsplittable return statement.
func maybeFactoryBody(body *Node) *Node {
	if body == nil {
		return nil
	}
	var stmts []*Node
	for _, c := range body.Children {
		if isPunctuation(c.Type) || c.Type == "comment" {
			continue
		}
		stmts = append(stmts, c)
	}
	if len(stmts) != 1 || stmts[0].Type != "return_statement" {
		return nil
	}
	for _, c := range stmts[0].Children {
		switch c.Type {
		case "arrow_function", "function_expression", "function":
			return findBody(c)
		}
	}
	return nil
}

// expandOversize recursively splits seg until every resulting piece fits
// within maxChunkTokens or no further syntactic structure is exploitable,
// in which case it falls through to line splitting. depth guards against
// runaway recursion; it is not expected to be hit in practice.
func (s *Segmenter) expandOversize(seg *segment, config *LanguageConfig, source []byte, lines []string, depth int) []*segment {
	if s.tokenEstimate(lines, seg.startLine, seg.endLine) <= s.maxChunkTokens || depth >= maxRecursionDepth {
		return []*segment{seg}
	}

	isContainer, isFunction, isObjectLiteral, body := classify(seg.node, config)

	if isContainer || isObjectLiteral {
		var children []*segment
		if isContainer {
			children = s.extractSegments(body, memberKinds(config), config, source)
		} else {
			children = s.extractSegments(body, objectPropertyKinds, config, source)
		}
		if len(children) == 0 {
			return s.lineSplitSegment(seg, lines)
		}
		return s.splitAroundChildren(seg, children, config, source, lines, depth)
	}

	if isFunction {
		blocks := s.extractSegments(body, blockStatementKinds, config, source)
		if len(blocks) == 0 {
			if inner := maybeFactoryBody(body); inner != nil {
				blocks = s.extractSegments(inner, blockStatementKinds, config, source)
			}
		}
		if len(blocks) == 0 {
			return s.lineSplitSegment(seg, lines)
		}
		return s.groupFunctionBlocks(seg, blocks, config, source, lines, depth)
	}

	return s.lineSplitSegment(seg, lines)
}

var objectPropertyKinds = map[string]bool{
	"pair": true, "shorthand_property_identifier": true, "spread_element": true,
	"method_definition": true,
}

// splitAroundChildren splits seg into an optional header (seg's own start
// up to the first child), the children themselves (each recursively
// re-expanded and extended to close any gap before the next child), and an
// optional footer (the last child's end up to seg's own end). A header or
// footer under minChunkTokens is folded into its neighbor instead of kept
// as its own undersized segment.
func (s *Segmenter) splitAroundChildren(seg *segment, children []*segment, config *LanguageConfig, source []byte, lines []string, depth int) []*segment {
	var result []*segment

	headerEnd := children[0].startLine - 1
	headerEmitted := false
	if headerEnd >= seg.startLine {
		if s.tokenEstimate(lines, seg.startLine, headerEnd) >= s.minChunkTokens {
			result = append(result, &segment{startLine: seg.startLine, endLine: headerEnd, kind: seg.kind + "_header", symbol: seg.symbol})
			headerEmitted = true
		}
	}

	for i, child := range children {
		start := child.startLine
		if !headerEmitted && i == 0 {
			start = seg.startLine
		}
		end := child.endLine
		if i+1 < len(children) {
			end = children[i+1].startLine - 1
		}
		adjusted := &segment{node: child.node, startLine: start, endLine: end, kind: child.kind, symbol: qualify(seg.symbol, child.symbol)}
		result = append(result, s.expandOversize(adjusted, config, source, lines, depth+1)...)
	}

	lastChildEnd := children[len(children)-1].endLine
	if lastChildEnd < seg.endLine {
		if s.tokenEstimate(lines, lastChildEnd+1, seg.endLine) >= s.minChunkTokens {
			result = append(result, &segment{startLine: lastChildEnd + 1, endLine: seg.endLine, kind: seg.kind + "_footer", symbol: seg.symbol})
		} else if len(result) > 0 {
			result[len(result)-1].endLine = seg.endLine
		}
	}

	return result
}

// groupFunctionBlocks splits a function body into an optional header (its
// signature line(s) before the first statement) followed by contiguous
// groups of statements, each grown greedily up to maxChunkTokens. A group
// that overflows on its own is recursively expanded again.
func (s *Segmenter) groupFunctionBlocks(seg *segment, blocks []*segment, config *LanguageConfig, source []byte, lines []string, depth int) []*segment {
	var result []*segment

	headerEnd := blocks[0].startLine - 1
	if headerEnd >= seg.startLine {
		result = append(result, &segment{startLine: seg.startLine, endLine: headerEnd, kind: seg.kind + "_header", symbol: seg.symbol})
	}

	var groups []*segment
	groupStart := blocks[0].startLine
	groupEnd := blocks[0].endLine
	for i := 1; i < len(blocks); i++ {
		candidateEnd := blocks[i].endLine
		if s.tokenEstimate(lines, groupStart, candidateEnd) > s.maxChunkTokens {
			groups = append(groups, &segment{startLine: groupStart, endLine: groupEnd, kind: seg.kind + "_block", symbol: seg.symbol})
			groupStart = groupEnd + 1
			groupEnd = candidateEnd
		} else {
			groupEnd = candidateEnd
		}
	}
	groups = append(groups, &segment{startLine: groupStart, endLine: seg.endLine, kind: seg.kind + "_block", symbol: seg.symbol})

	for _, g := range groups {
		result = append(result, s.expandOversize(g, config, source, lines, depth+1)...)
	}
	return result
}

func qualify(parent, child string) string {
	if child == "" {
		return parent
	}
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// lineSplitSegment is the last resort: it slices seg's lines into
// contiguous parts, each just under maxChunkTokens*4 characters, with no
// regard for syntax. Parts are tagged "<kind>_part" and labeled with a
// monotonically increasing index appended to the symbol.
func (s *Segmenter) lineSplitSegment(seg *segment, lines []string) []*segment {
	maxChars := s.maxChunkTokens * 4
	var result []*segment

	partIdx := 0
	curStart := seg.startLine
	curChars := 0
	for i := seg.startLine; i <= seg.endLine && i >= 0 && i < len(lines); i++ {
		lineChars := len(lines[i]) + 1
		if curChars > 0 && curChars+lineChars > maxChars {
			result = append(result, &segment{startLine: curStart, endLine: i - 1, kind: seg.kind + "_part", symbol: partLabel(seg.symbol, partIdx)})
			partIdx++
			curStart = i
			curChars = 0
		}
		curChars += lineChars
	}
	result = append(result, &segment{startLine: curStart, endLine: seg.endLine, kind: seg.kind + "_part", symbol: partLabel(seg.symbol, partIdx)})
	return result
}

func partLabel(symbol string, idx int) string {
	if symbol == "" {
		return fmt.Sprintf("part_%d", idx)
	}
	return fmt.Sprintf("%s#%d", symbol, idx)
}

// mergeSmallSegments folds any segment under minChunkTokens into its
// successor (or vice versa) so no chunk ends up too thin to be useful on
// its own. When the earlier of a merged pair was the smaller one, the
// merged segment adopts the later one's (more descriptive) kind and
// symbol; ties keep the earlier segment's label.
func (s *Segmenter) mergeSmallSegments(segs []*segment, lines []string) []*segment {
	if len(segs) == 0 {
		return segs
	}

	var merged []*segment
	current := segs[0]
	currentTokens := s.tokenEstimate(lines, current.startLine, current.endLine)

	for i := 1; i < len(segs); i++ {
		next := segs[i]
		nextTokens := s.tokenEstimate(lines, next.startLine, next.endLine)

		if currentTokens < s.minChunkTokens || nextTokens < s.minChunkTokens {
			kind, symbol := current.kind, current.symbol
			if currentTokens < nextTokens {
				kind, symbol = next.kind, next.symbol
			}
			current = &segment{startLine: current.startLine, endLine: next.endLine, kind: kind, symbol: symbol}
			currentTokens = s.tokenEstimate(lines, current.startLine, current.endLine)
			continue
		}

		merged = append(merged, current)
		current = next
		currentTokens = nextTokens
	}
	merged = append(merged, current)
	return merged
}

// materialize converts line-range segments into Chunks: clamping their
// range to the file's actual lines, joining the text, and deriving each
// chunk's id from its own content hash.
func (s *Segmenter) materialize(segs []*segment, file *FileInput, lines []string) []*Chunk {
	chunks := make([]*Chunk, 0, len(segs))
	now := time.Now()

	for _, seg := range segs {
		start, end := seg.startLine, seg.endLine
		if start < 0 {
			start = 0
		}
		if end >= len(lines) {
			end = len(lines) - 1
		}
		if start > end {
			continue
		}

		text := strings.Join(lines[start:end+1], "\n")
		chunks = append(chunks, &Chunk{
			ID:          hashutil.SHA256Text([]byte(text)),
			FilePath:    file.Path,
			Content:     text,
			ContentType: ContentTypeCode,
			Language:    file.Language,
			StartLine:   start + 1,
			EndLine:     end + 1,
			NodeKind:    seg.kind,
			SymbolName:  seg.symbol,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return chunks
}
