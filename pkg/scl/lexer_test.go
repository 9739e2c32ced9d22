package scl

import (
	"reflect"
	"testing"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

func kinds(line block.CodeLine) []block.TokenKind {
	out := make([]block.TokenKind, 0, len(line))
	for _, t := range line {
		out = append(out, t.Kind)
	}
	return out
}

func wantKinds(t *testing.T, src string, want []block.TokenKind) block.CodeLine {
	t.Helper()
	got := LexLine(src)
	if !reflect.DeepEqual(kinds(got), want) {
		t.Fatalf("\nsource: %s\nwant kinds: %v\ngot kinds:  %v", src, want, kinds(got))
	}
	return got
}

func TestLexAssignment(t *testing.T) {
	got := wantKinds(t, "#x := 1;", []block.TokenKind{
		block.TokVariable, block.TokWhitespace, block.TokOperator,
		block.TokWhitespace, block.TokLiteral, block.TokOperator,
	})
	if got[2].Text != ":=" {
		t.Errorf("operator = %q, want :=", got[2].Text)
	}
	if got[4].Text != "1" {
		t.Errorf("literal = %q, want 1", got[4].Text)
	}
}

func TestLexCoversWholeLine(t *testing.T) {
	for _, src := range []string{
		"#x := 1;",
		`IF #a.b >= 10 THEN`,
		`#out := "DB_Data".values[#i].raw * 2; // scale`,
		"#t := T#8s;",
		"#x := 16#FF;",
	} {
		if got := LexLine(src).Text(); got != src {
			t.Errorf("round trip of %q = %q", src, got)
		}
	}
}

func TestLexDottedLocalAccess(t *testing.T) {
	got := wantKinds(t, "#motor.speed", []block.TokenKind{block.TokVariable})
	a := got[0].Access
	if a.Scope != block.ScopeLocal {
		t.Fatalf("scope = %s, want %s", a.Scope, block.ScopeLocal)
	}
	if len(a.Components) != 2 || a.Components[0].Name != "motor" || a.Components[1].Name != "speed" {
		t.Fatalf("components = %+v, want motor.speed", a.Components)
	}
}

func TestLexGlobalAndConstantScope(t *testing.T) {
	tests := []struct {
		src   string
		scope block.Scope
	}{
		{`"DB_Settings".limit`, block.ScopeGlobal},
		{`"gc_Max"`, block.ScopeGlobalConstant},
	}
	for _, tc := range tests {
		got := wantKinds(t, tc.src, []block.TokenKind{block.TokVariable})
		if got[0].Access.Scope != tc.scope {
			t.Errorf("%s: scope = %s, want %s", tc.src, got[0].Access.Scope, tc.scope)
		}
		if got[0].SourceText() != tc.src {
			t.Errorf("%s: rendered as %q", tc.src, got[0].SourceText())
		}
	}
}

func TestLexNestedIndexAccess(t *testing.T) {
	got := wantKinds(t, "#tag[#index].field", []block.TokenKind{block.TokVariable})
	a := got[0].Access
	if len(a.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(a.Components))
	}
	idx := a.Components[0].Index
	if len(idx) != 1 || idx[0].Kind != block.TokVariable {
		t.Fatalf("index tokens = %+v, want one nested access", idx)
	}
	if idx[0].Access.Components[0].Name != "index" {
		t.Errorf("index access = %+v", idx[0].Access)
	}
}

func TestLexTypedConstants(t *testing.T) {
	for _, src := range []string{"T#8s", "TIME#5s", "S5T#100ms"} {
		got := LexLine(src)
		if got[0].Kind != block.TokTyped || got[0].Text != src {
			t.Errorf("%s lexed as %+v", src, got[0])
		}
	}
}

func TestLexKeywordsAndBooleans(t *testing.T) {
	got := wantKinds(t, "IF NOT TRUE THEN", []block.TokenKind{
		block.TokKeyword, block.TokWhitespace, block.TokKeyword,
		block.TokWhitespace, block.TokLiteral, block.TokWhitespace, block.TokKeyword,
	})
	if got[4].Text != "TRUE" {
		t.Errorf("boolean literal = %q", got[4].Text)
	}
}

func TestLexRangeOperator(t *testing.T) {
	got := LexLine("FOR #i := 1 TO 10 DO")
	text := got.Text()
	if text != "FOR #i := 1 TO 10 DO" {
		t.Errorf("round trip = %q", text)
	}
	// 1..10 must not glue into one literal.
	got = LexLine("1..10")
	want := []block.TokenKind{block.TokLiteral, block.TokOperator, block.TokLiteral}
	if !reflect.DeepEqual(kinds(got), want) {
		t.Errorf("1..10 kinds = %v, want %v", kinds(got), want)
	}
}

func TestLexComment(t *testing.T) {
	got := wantKinds(t, "// reset counters", []block.TokenKind{block.TokComment})
	if got[0].Text != "reset counters" {
		t.Errorf("comment text = %q", got[0].Text)
	}
}

func TestLexWhitespaceRuns(t *testing.T) {
	got := wantKinds(t, "#a   :=#b", []block.TokenKind{
		block.TokVariable, block.TokWhitespace, block.TokOperator, block.TokVariable,
	})
	if got[1].Count != 3 {
		t.Errorf("run length = %d, want 3", got[1].Count)
	}
}
