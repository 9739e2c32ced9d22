package scl

import (
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

// GroupCalls folds `variable ( name := value, ... )` token runs into
// single Call tokens. Parenthesized groups that do not look like a block
// call, e.g. arithmetic grouping, are left flat. Parameter values are
// grouped recursively so nested calls stay structured.
func GroupCalls(line block.CodeLine) block.CodeLine {
	var out block.CodeLine
	i := 0
	for i < len(line) {
		tok := line[i]
		if tok.Kind == block.TokVariable && tok.Access != nil &&
			i+1 < len(line) && isOperator(line[i+1], "(") {
			if call, next, ok := parseCall(line, i); ok {
				out = append(out, block.Token{Kind: block.TokCall, Call: call})
				i = next
				continue
			}
		}
		out = append(out, tok)
		i++
	}
	return out
}

func isOperator(tok block.Token, text string) bool {
	return tok.Kind == block.TokOperator && tok.Text == text
}

// parseCall tries to read a call starting at the callee token. It returns
// ok=false when the parenthesized region has no named-parameter shape, so
// the caller keeps the flat tokens.
func parseCall(line block.CodeLine, start int) (*block.Call, int, bool) {
	open := start + 1
	depth := 0
	end := -1
	for i := open; i < len(line); i++ {
		switch {
		case isOperator(line[i], "("):
			depth++
		case isOperator(line[i], ")"):
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, 0, false
	}

	inner := line[open+1 : end]
	params, ok := parseParameters(inner)
	if !ok {
		return nil, 0, false
	}
	return &block.Call{Callee: *line[start].Access, Params: params}, end + 1, true
}

// parseParameters splits the argument region on top-level commas and
// reads each part as `name := tokens` or `name => tokens`.
func parseParameters(inner block.CodeLine) ([]block.Parameter, bool) {
	inner = trimBlanks(inner)
	if len(inner) == 0 {
		return nil, true
	}

	var parts []block.CodeLine
	depth := 0
	partStart := 0
	for i, tok := range inner {
		switch {
		case isOperator(tok, "("):
			depth++
		case isOperator(tok, ")"):
			depth--
		case isOperator(tok, ",") && depth == 0:
			parts = append(parts, inner[partStart:i])
			partStart = i + 1
		}
	}
	parts = append(parts, inner[partStart:])

	params := make([]block.Parameter, 0, len(parts))
	for _, part := range parts {
		p, ok := parseParameter(part)
		if !ok {
			return nil, false
		}
		params = append(params, p)
	}
	return params, true
}

func parseParameter(part block.CodeLine) (block.Parameter, bool) {
	part = trimBlanks(part)
	if len(part) < 3 {
		return block.Parameter{}, false
	}
	name := part[0]
	if name.Kind != block.TokVariable || name.Access == nil ||
		len(name.Access.Components) != 1 || len(name.Access.Components[0].Index) != 0 {
		return block.Parameter{}, false
	}

	rest := trimBlanks(part[1:])
	if len(rest) < 2 || rest[0].Kind != block.TokOperator ||
		(rest[0].Text != ":=" && rest[0].Text != "=>") {
		return block.Parameter{}, false
	}

	value := trimBlanks(rest[1:])
	if len(value) == 0 {
		return block.Parameter{}, false
	}
	return block.Parameter{
		Name:  name.Access.Components[0].Name,
		Op:    rest[0].Text,
		Value: GroupCalls(value),
	}, true
}

func trimBlanks(line block.CodeLine) block.CodeLine {
	for len(line) > 0 && line[0].Kind == block.TokWhitespace {
		line = line[1:]
	}
	for len(line) > 0 && line[len(line)-1].Kind == block.TokWhitespace {
		line = line[:len(line)-1]
	}
	return line
}
