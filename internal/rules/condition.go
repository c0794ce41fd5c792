package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// MaxConditionLength caps the size of a condition string.
const MaxConditionLength = 500

// disallowedChars never appear in a valid condition.
const disallowedChars = ";()[]{}\\`$"

// Facts is the derived fact context a condition is evaluated against.
// Values are float64, bool or string.
type Facts map[string]any

// NodeKind tags a condition AST node.
type NodeKind int

const (
	// NodeNever always evaluates false. A clause outside the grammar becomes
	// a never node in place; an expression rejected as a whole becomes a
	// single never root.
	NodeNever NodeKind = iota
	NodeLookup
	NodeCompare
	NodeAnd
	NodeOr
)

func (k NodeKind) String() string {
	switch k {
	case NodeLookup:
		return "lookup"
	case NodeCompare:
		return "compare"
	case NodeAnd:
		return "and"
	case NodeOr:
		return "or"
	default:
		return "never"
	}
}

// Operators accepted in comparison nodes.
const (
	OpLess     = "<"
	OpGreater  = ">"
	OpNotEqual = "!="
)

// Node is one element of a compiled condition.
type Node struct {
	Kind     NodeKind
	Fact     string
	Op       string
	Number   float64
	Literal  string
	Children []*Node
}

// Condition is a rule condition compiled once at load time.
type Condition struct {
	source     string
	root       *Node
	diagnostic string
}

// Compile parses src into a condition. It never fails: anything outside the
// grammar compiles to a never node and Diagnostic explains why.
func Compile(src string) Condition {
	p := &parser{}
	root, err := p.parseCondition(src)
	if err != nil {
		return Condition{
			source:     src,
			root:       &Node{Kind: NodeNever},
			diagnostic: err.Error(),
		}
	}
	return Condition{source: src, root: root, diagnostic: strings.Join(p.diagnostics, "; ")}
}

// Source returns the original condition text.
func (c Condition) Source() string { return c.source }

// Root returns the compiled AST.
func (c Condition) Root() *Node { return c.root }

// Diagnostic is empty when the condition compiled cleanly. Otherwise it lists
// why the whole condition or individual clauses compile to never.
func (c Condition) Diagnostic() string { return c.diagnostic }

// Eval evaluates the condition against facts.
func (c Condition) Eval(facts Facts) bool {
	if c.root == nil {
		return false
	}
	return c.root.eval(facts)
}

func (n *Node) eval(facts Facts) bool {
	switch n.Kind {
	case NodeLookup:
		v, ok := facts[n.Fact]
		return ok && truthy(v)
	case NodeCompare:
		return n.compare(facts)
	case NodeAnd:
		for _, child := range n.Children {
			if !child.eval(facts) {
				return false
			}
		}
		return len(n.Children) > 0
	case NodeOr:
		for _, child := range n.Children {
			if child.eval(facts) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (n *Node) compare(facts Facts) bool {
	v, ok := facts[n.Fact]
	if !ok {
		return false
	}
	switch n.Op {
	case OpLess, OpGreater:
		f, ok := toFloat(v)
		if !ok {
			return false
		}
		if n.Op == OpLess {
			return f < n.Number
		}
		return f > n.Number
	case OpNotEqual:
		return formatFact(v) != n.Literal
	default:
		return false
	}
}

type lexeme struct {
	code int
	text string
}

// parser collects per-clause diagnostics while building the tree.
type parser struct {
	diagnostics []string
}

// parseCondition rejects the whole expression only on the length cap,
// disallowed characters or input the lexer cannot tokenize.
func (p *parser) parseCondition(src string) (*Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty condition")
	}
	if len(src) > MaxConditionLength {
		return nil, fmt.Errorf("condition exceeds %d characters", MaxConditionLength)
	}
	if i := strings.IndexAny(src, disallowedChars); i >= 0 {
		return nil, fmt.Errorf("disallowed character %q", src[i])
	}

	lexemes, err := lex(src)
	if err != nil {
		return nil, err
	}
	return p.parseAnd(lexemes), nil
}

func lex(src string) ([]lexeme, error) {
	cursor := parsly.NewCursor("condition", []byte(src), 0)
	var out []lexeme
	for {
		match := cursor.MatchAfterOptional(whitespaceToken, conditionTokens...)
		switch match.Code {
		case parsly.EOF:
			return out, nil
		case notEqualCode, equalCode, lessEqualCode, greaterEqualCode, lessCode, greaterCode,
			numberCode, quotedCode, identifierCode:
			out = append(out, lexeme{code: match.Code, text: match.Text(cursor)})
		default:
			return nil, fmt.Errorf("unexpected input at offset %d", cursor.Pos)
		}
	}
}

// parseAnd splits on "and"; each operand is a disjunction, so "or" binds
// tighter than "and".
func (p *parser) parseAnd(lexemes []lexeme) *Node {
	parts := splitKeyword(lexemes, "and")
	if len(parts) == 1 {
		return p.parseOr(parts[0])
	}
	node := &Node{Kind: NodeAnd}
	for _, part := range parts {
		node.Children = append(node.Children, p.parseOr(part))
	}
	return node
}

func (p *parser) parseOr(lexemes []lexeme) *Node {
	parts := splitKeyword(lexemes, "or")
	if len(parts) == 1 {
		return p.clause(parts[0])
	}
	node := &Node{Kind: NodeOr}
	for _, part := range parts {
		node.Children = append(node.Children, p.clause(part))
	}
	return node
}

// clause compiles one clause; a clause outside the grammar becomes a never
// node and its siblings stay live.
func (p *parser) clause(lexemes []lexeme) *Node {
	node, err := parseClause(lexemes)
	if err != nil {
		p.diagnostics = append(p.diagnostics, err.Error())
		return &Node{Kind: NodeNever}
	}
	return node
}

func splitKeyword(lexemes []lexeme, keyword string) [][]lexeme {
	var parts [][]lexeme
	start := 0
	for i, lx := range lexemes {
		if lx.code == identifierCode && lx.text == keyword {
			parts = append(parts, lexemes[start:i])
			start = i + 1
		}
	}
	return append(parts, lexemes[start:])
}

func parseClause(lexemes []lexeme) (*Node, error) {
	switch len(lexemes) {
	case 0:
		return nil, fmt.Errorf("empty clause")
	case 1:
		fact, err := factName(lexemes[0])
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeLookup, Fact: fact}, nil
	case 3:
		return parseComparison(lexemes)
	default:
		if hasBoth(lexemes, lessCode, greaterCode) {
			return nil, fmt.Errorf("clause mixes < and >")
		}
		return nil, fmt.Errorf("malformed clause %q", joinText(lexemes))
	}
}

func parseComparison(lexemes []lexeme) (*Node, error) {
	fact, err := factName(lexemes[0])
	if err != nil {
		return nil, err
	}
	op, value := lexemes[1], lexemes[2]
	switch op.code {
	case lessCode, greaterCode:
		if value.code != numberCode {
			return nil, fmt.Errorf("%s expects a number, got %q", op.text, value.text)
		}
		n, err := strconv.ParseFloat(value.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", value.text)
		}
		return &Node{Kind: NodeCompare, Fact: fact, Op: op.text, Number: n}, nil
	case notEqualCode:
		literal := value.text
		switch value.code {
		case quotedCode:
			literal = literal[1 : len(literal)-1]
		case numberCode:
		case identifierCode:
			if isKeyword(literal) {
				return nil, fmt.Errorf("unexpected keyword %q", literal)
			}
		default:
			return nil, fmt.Errorf("!= expects a literal, got %q", value.text)
		}
		return &Node{Kind: NodeCompare, Fact: fact, Op: OpNotEqual, Literal: literal}, nil
	case equalCode, lessEqualCode, greaterEqualCode:
		return nil, fmt.Errorf("operator %s is not supported", op.text)
	default:
		return nil, fmt.Errorf("malformed clause %q", joinText(lexemes))
	}
}

func factName(lx lexeme) (string, error) {
	if lx.code != identifierCode {
		return "", fmt.Errorf("expected fact name, got %q", lx.text)
	}
	if isKeyword(lx.text) {
		return "", fmt.Errorf("unexpected keyword %q", lx.text)
	}
	if strings.Contains(lx.text, ".") {
		return "", fmt.Errorf("method-style matching %q is not supported", lx.text)
	}
	return lx.text, nil
}

func isKeyword(s string) bool {
	return s == "and" || s == "or" || s == "not"
}

func hasBoth(lexemes []lexeme, a, b int) bool {
	var seenA, seenB bool
	for _, lx := range lexemes {
		seenA = seenA || lx.code == a
		seenB = seenB || lx.code == b
	}
	return seenA && seenB
}

func joinText(lexemes []lexeme) string {
	parts := make([]string, len(lexemes))
	for i, lx := range lexemes {
		parts[i] = lx.text
	}
	return strings.Join(parts, " ")
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatFact(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
