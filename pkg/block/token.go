package block

import (
	"strings"
)

// TokenKind discriminates the token union.
type TokenKind int

const (
	TokWhitespace TokenKind = iota
	TokOperator
	TokKeyword
	TokVariable // a variable access, possibly dotted and indexed
	TokLiteral  // numeric, boolean or quoted-string literal
	TokTyped    // typed constant such as T#8s
	TokComment  // line comment, text without the // prefix
	TokCall     // call expression with named parameters
	TokUnknown  // single character the lexer could not classify
)

// Scope classifies a variable access for the Openness XML dialect.
type Scope string

const (
	ScopeLocal          Scope = "LocalVariable"
	ScopeGlobal         Scope = "GlobalVariable"
	ScopeGlobalConstant Scope = "GlobalConstant"
)

// Component is one element of a dotted access path. Index holds the
// tokens of a subscript expression, itself possibly containing nested
// accesses (`#tag[#i].field`).
type Component struct {
	Name  string
	Index []Token
}

// Access is a variable reference: a scope and a dotted component path.
type Access struct {
	Scope      Scope
	Components []Component
}

// Parameter is one named argument of a call. Op is the assignment
// operator as written (`:=` for inputs, `=>` for outputs).
type Parameter struct {
	Name  string
	Op    string
	Value []Token
}

// Call is a block or function invocation.
type Call struct {
	Callee Access
	Params []Parameter
}

// Token is the tagged union shared by the lexer, the XML generator and
// the XML extractor. Exactly the fields implied by Kind are set.
type Token struct {
	Kind   TokenKind
	Text   string  // operator, keyword, literal, typed constant, comment
	Count  int     // whitespace run length
	Access *Access // TokVariable
	Call   *Call   // TokCall
}

// Whitespace returns a whitespace-run token.
func Whitespace(n int) Token { return Token{Kind: TokWhitespace, Count: n} }

// Operator returns an operator token.
func Operator(text string) Token { return Token{Kind: TokOperator, Text: text} }

// Keyword returns a keyword token.
func Keyword(text string) Token { return Token{Kind: TokKeyword, Text: text} }

// Literal returns a literal-constant token.
func Literal(text string) Token { return Token{Kind: TokLiteral, Text: text} }

// TypedConstant returns a typed-constant token.
func TypedConstant(text string) Token { return Token{Kind: TokTyped, Text: text} }

// LineComment returns a line-comment token.
func LineComment(text string) Token { return Token{Kind: TokComment, Text: text} }

// Variable returns a variable-access token.
func Variable(a Access) Token { return Token{Kind: TokVariable, Access: &a} }

// CodeLine is one line of a block body as an ordered token sequence.
type CodeLine []Token

// Text flattens the line back to SCL source text.
func (l CodeLine) Text() string {
	var sb strings.Builder
	for _, t := range l {
		sb.WriteString(t.SourceText())
	}
	return sb.String()
}

// SourceText renders one token as SCL source text.
func (t Token) SourceText() string {
	switch t.Kind {
	case TokWhitespace:
		n := t.Count
		if n < 1 {
			n = 1
		}
		return strings.Repeat(" ", n)
	case TokOperator, TokKeyword, TokLiteral, TokTyped, TokUnknown:
		return t.Text
	case TokComment:
		return "// " + t.Text
	case TokVariable:
		if t.Access == nil {
			return ""
		}
		return t.Access.SourceText()
	case TokCall:
		if t.Call == nil {
			return ""
		}
		return t.Call.SourceText()
	}
	return t.Text
}

// SourceText renders the access with its scope convention: `#` prefix
// for locals, quotes around the first component for globals.
func (a *Access) SourceText() string {
	var sb strings.Builder
	for i, c := range a.Components {
		if i > 0 {
			sb.WriteByte('.')
		}
		switch {
		case i == 0 && a.Scope == ScopeLocal:
			sb.WriteByte('#')
			sb.WriteString(c.Name)
		case i == 0:
			sb.WriteByte('"')
			sb.WriteString(c.Name)
			sb.WriteByte('"')
		default:
			sb.WriteString(c.Name)
		}
		if len(c.Index) > 0 {
			sb.WriteByte('[')
			sb.WriteString(CodeLine(c.Index).Text())
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// SourceText renders the call as `callee(p1 := v1, p2 => v2)`.
func (c *Call) SourceText() string {
	var sb strings.Builder
	sb.WriteString(c.Callee.SourceText())
	sb.WriteByte('(')
	for i, p := range c.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		op := p.Op
		if op == "" {
			op = ":="
		}
		sb.WriteString(" " + op + " ")
		sb.WriteString(CodeLine(p.Value).Text())
	}
	sb.WriteByte(')')
	return sb.String()
}
