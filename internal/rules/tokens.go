package rules

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes start at 1 so they never collide with parsly.EOF.
const (
	whitespaceCode = iota + 1
	notEqualCode
	equalCode
	lessEqualCode
	greaterEqualCode
	lessCode
	greaterCode
	numberCode
	quotedCode
	identifierCode
)

var (
	whitespaceToken   = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	notEqualToken     = parsly.NewToken(notEqualCode, "!=", matcher.NewFragment("!="))
	equalToken        = parsly.NewToken(equalCode, "==", matcher.NewFragment("=="))
	lessEqualToken    = parsly.NewToken(lessEqualCode, "<=", matcher.NewFragment("<="))
	greaterEqualToken = parsly.NewToken(greaterEqualCode, ">=", matcher.NewFragment(">="))
	lessToken         = parsly.NewToken(lessCode, "<", matcher.NewByte('<'))
	greaterToken      = parsly.NewToken(greaterCode, ">", matcher.NewByte('>'))
	numberToken       = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	quotedToken       = parsly.NewToken(quotedCode, "Quoted", &quotedMatcher{})
	identifierToken   = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
)

// conditionTokens lists every token a condition may contain. Two-byte
// operators precede their one-byte prefixes.
var conditionTokens = []*parsly.Token{
	notEqualToken,
	equalToken,
	lessEqualToken,
	greaterEqualToken,
	lessToken,
	greaterToken,
	numberToken,
	quotedToken,
	identifierToken,
}

// identifierMatcher matches fact names and keywords. Dots are accepted so
// method-style matching such as account_type.startswith is tokenized and
// then rejected by the parser rather than the lexer.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		c := input[i]
		if isLetter(c) || isDigit(c) || c == '_' || c == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// numberMatcher matches an optionally signed decimal number.
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	i := pos
	if i < size && (input[i] == '-' || input[i] == '+') {
		i++
	}
	digits := 0
	dot := false
	for ; i < size; i++ {
		c := input[i]
		if isDigit(c) {
			digits++
			continue
		}
		if c == '.' && !dot {
			dot = true
			continue
		}
		break
	}
	if digits == 0 {
		return 0
	}
	// Reject things like 12abc so they surface as malformed clauses.
	if i < size && (isLetter(input[i]) || input[i] == '_') {
		return 0
	}
	return i - pos
}

// quotedMatcher matches a single- or double-quoted literal without escapes.
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	quote := input[pos]
	if quote != '\'' && quote != '"' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] == quote {
			return i - pos + 1
		}
	}
	return 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
