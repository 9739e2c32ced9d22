// Package scl converts between SCL source text and the canonical block
// Document: a line lexer, a header/section parser, and a text emitter.
package scl

import (
	"strings"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

// symbolOperators is matched greedily, longest first. Multi-character
// operators must come before their prefixes.
var symbolOperators = []string{
	":=", "=>", "<>", ">=", "<=", "..",
	"=", ">", "<", "+", "-", "*", "/", "&",
	";", "(", ")", "[", "]", ",", ".", ":",
}

// keywords are classified as Keyword tokens. TRUE/FALSE are handled
// separately as literal constants.
var keywords = map[string]bool{
	"IF": true, "THEN": true, "ELSE": true, "ELSIF": true, "END_IF": true,
	"CASE": true, "OF": true, "END_CASE": true,
	"FOR": true, "TO": true, "BY": true, "DO": true, "END_FOR": true,
	"WHILE": true, "END_WHILE": true,
	"REPEAT": true, "UNTIL": true, "END_REPEAT": true,
	"EXIT": true, "CONTINUE": true, "RETURN": true,
	"AND": true, "OR": true, "XOR": true, "NOT": true, "MOD": true,
	"REGION": true, "END_REGION": true,
}

// LexLine tokenizes one line of SCL body text. The whole line is covered:
// whitespace becomes explicit run tokens and unrecognized characters
// become Unknown tokens, so lexing never fails.
func LexLine(line string) block.CodeLine {
	lx := &lexer{src: line}
	return lx.run()
}

type lexer struct {
	src string
	pos int
}

func (lx *lexer) run() block.CodeLine {
	var out block.CodeLine
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t':
			out = append(out, block.Whitespace(lx.scanSpaces()))
		case c == '/' && lx.peek(1) == '/':
			out = append(out, block.LineComment(lx.scanComment()))
		case c == '\'':
			out = append(out, block.Literal(lx.scanQuoted('\'')))
		case c == '"':
			out = append(out, lx.scanGlobalAccess())
		case c == '#':
			out = append(out, lx.scanLocalAccess())
		case c >= '0' && c <= '9':
			out = append(out, lx.scanNumber())
		case isIdentStart(c):
			out = append(out, lx.scanWord())
		default:
			if op, ok := lx.scanOperator(); ok {
				out = append(out, block.Operator(op))
			} else {
				out = append(out, block.Token{Kind: block.TokUnknown, Text: string(c)})
				lx.pos++
			}
		}
	}
	return out
}

func (lx *lexer) peek(off int) byte {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

func (lx *lexer) scanSpaces() int {
	n := 0
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		n++
		lx.pos++
	}
	return n
}

func (lx *lexer) scanComment() string {
	text := lx.src[lx.pos+2:]
	lx.pos = len(lx.src)
	return strings.TrimPrefix(text, " ")
}

// scanQuoted consumes a quoted run verbatim, enclosing quotes included.
// An unterminated literal runs to end of line.
func (lx *lexer) scanQuoted(quote byte) string {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) && lx.src[lx.pos] != quote {
		lx.pos++
	}
	if lx.pos < len(lx.src) {
		lx.pos++
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) scanOperator() (string, bool) {
	rest := lx.src[lx.pos:]
	for _, op := range symbolOperators {
		if strings.HasPrefix(rest, op) {
			lx.pos += len(op)
			return op, true
		}
	}
	return "", false
}

// scanNumber consumes a numeric literal: digits, a decimal point, digit
// separators, and base literals such as 16#FF.
func (lx *lexer) scanNumber() block.Token {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c >= '0' && c <= '9' || c == '_':
			lx.pos++
		case c == '.' && lx.peek(1) >= '0' && lx.peek(1) <= '9':
			lx.pos++
		case c == '#':
			lx.pos++
			for lx.pos < len(lx.src) && (isIdentChar(lx.src[lx.pos]) || lx.src[lx.pos] == '.') {
				lx.pos++
			}
			return block.Literal(lx.src[start:lx.pos])
		default:
			return block.Literal(lx.src[start:lx.pos])
		}
	}
	return block.Literal(lx.src[start:lx.pos])
}

// scanWord handles bare identifiers: keywords, TRUE/FALSE literals,
// typed constants (T#8s, TIME#5s), and plain variable references.
func (lx *lexer) scanWord() block.Token {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
		lx.pos++
	}
	word := lx.src[start:lx.pos]
	upper := strings.ToUpper(word)

	// A '#' directly after the word makes it a typed constant prefix.
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '#' {
		for lx.pos < len(lx.src) {
			c := lx.src[lx.pos]
			if isIdentChar(c) || c == '.' || c == '#' {
				lx.pos++
			} else {
				break
			}
		}
		return block.TypedConstant(lx.src[start:lx.pos])
	}

	switch {
	case upper == "TRUE" || upper == "FALSE":
		return block.Literal(upper)
	case keywords[upper]:
		return block.Keyword(upper)
	}

	// Bare identifier: a local reference without the # marker.
	access := block.Access{Scope: block.ScopeLocal}
	access.Components = append(access.Components, lx.scanComponentTail(word))
	lx.scanPath(&access)
	return block.Variable(access)
}

func (lx *lexer) scanLocalAccess() block.Token {
	lx.pos++ // '#'
	name := lx.scanIdent()
	access := block.Access{Scope: block.ScopeLocal}
	access.Components = append(access.Components, lx.scanComponentTail(name))
	lx.scanPath(&access)
	return block.Variable(access)
}

// scanGlobalAccess handles `"name"` and `"db".path` references. The
// gc_ naming convention marks global constants.
func (lx *lexer) scanGlobalAccess() block.Token {
	quoted := lx.scanQuoted('"')
	name := strings.Trim(quoted, "\"")
	scope := block.ScopeGlobal
	if strings.HasPrefix(name, "gc_") {
		scope = block.ScopeGlobalConstant
	}
	access := block.Access{Scope: scope}
	access.Components = append(access.Components, lx.scanComponentTail(name))
	lx.scanPath(&access)
	return block.Variable(access)
}

// scanPath consumes `.component` continuations, each with an optional
// subscript.
func (lx *lexer) scanPath(access *block.Access) {
	for lx.pos < len(lx.src) && lx.src[lx.pos] == '.' && isIdentStart(lx.peek(1)) {
		lx.pos++
		name := lx.scanIdent()
		access.Components = append(access.Components, lx.scanComponentTail(name))
	}
}

// scanComponentTail attaches a bracketed index expression to the
// component when one follows directly. The index text is lexed
// recursively so nested accesses stay structured.
func (lx *lexer) scanComponentTail(name string) block.Component {
	comp := block.Component{Name: name}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '[' {
		depth := 0
		start := lx.pos
		for lx.pos < len(lx.src) {
			switch lx.src[lx.pos] {
			case '[':
				depth++
			case ']':
				depth--
			}
			lx.pos++
			if depth == 0 {
				break
			}
		}
		inner := lx.src[start+1 : lx.pos-1]
		if depth != 0 {
			// Unbalanced bracket runs to end of line.
			inner = lx.src[start+1:]
		}
		comp.Index = LexLine(inner)
	}
	return comp
}

func (lx *lexer) scanIdent() string {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
		lx.pos++
	}
	return lx.src[start:lx.pos]
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
