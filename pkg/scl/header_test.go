package scl

import (
	"strings"
	"testing"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

func parse(t *testing.T, src string) *block.Document {
	t.Helper()
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return doc
}

const minimalFB = `FUNCTION_BLOCK "M"
VAR_INPUT
  x : Int;
END_VAR
BEGIN
  #x := 1;
END_FUNCTION_BLOCK`

func TestParseMinimalFunctionBlock(t *testing.T) {
	doc := parse(t, minimalFB)
	if doc.Metadata.Kind != block.KindFB {
		t.Fatalf("kind = %s, want FB", doc.Metadata.Kind)
	}
	if doc.Metadata.Name != "M" {
		t.Errorf("name = %q, want M", doc.Metadata.Name)
	}
	in := doc.Sections[block.SectionInput]
	if len(in) != 1 || in[0].Name != "x" || in[0].Datatype != "Int" {
		t.Fatalf("input section = %+v", in)
	}
	if len(doc.Code) != 1 || doc.Code[0] != "#x := 1;" {
		t.Fatalf("code = %q", doc.Code)
	}
	// Every legal section is present even when empty.
	for _, sec := range block.LegalSections(block.KindFB) {
		if _, ok := doc.Sections[sec]; !ok {
			t.Errorf("section %s missing from map", sec)
		}
	}
}

func TestParseFunctionReturnType(t *testing.T) {
	doc := parse(t, `FUNCTION "Calc" : Real
VAR_INPUT
  a : Real;
END_VAR
BEGIN
  #Calc := #a * 2.0;
END_FUNCTION`)
	if doc.Metadata.Kind != block.KindFC {
		t.Fatalf("kind = %s, want FC", doc.Metadata.Kind)
	}
	if doc.Metadata.ReturnType != "Real" {
		t.Errorf("return type = %q, want Real", doc.Metadata.ReturnType)
	}
}

func TestParseHeaderPragmas(t *testing.T) {
	doc := parse(t, `FUNCTION_BLOCK "Pump"
{ S7_Optimized_Access := 'FALSE' }
AUTHOR : plcteam
VERSION : 0.3
VAR_INPUT
  run : Bool;
END_VAR
BEGIN
END_FUNCTION_BLOCK`)
	if doc.Metadata.MemoryLayout != "Standard" {
		t.Errorf("memory layout = %q, want Standard", doc.Metadata.MemoryLayout)
	}
	if doc.Metadata.Author != "plcteam" {
		t.Errorf("author = %q", doc.Metadata.Author)
	}
	if doc.Metadata.Version != "0.3" {
		t.Errorf("version = %q", doc.Metadata.Version)
	}
}

func TestParseNestedStruct(t *testing.T) {
	doc := parse(t, `FUNCTION_BLOCK "S"
VAR
  cfg : Struct
    limit : Int;
    inner : Struct
      flag : Bool;
    END_STRUCT;
  END_STRUCT;
END_VAR
BEGIN
END_FUNCTION_BLOCK`)
	static := doc.Sections[block.SectionStatic]
	if len(static) != 1 || !static[0].IsStruct() {
		t.Fatalf("static = %+v", static)
	}
	cfg := static[0]
	if len(cfg.Members) != 2 {
		t.Fatalf("cfg members = %+v", cfg.Members)
	}
	if cfg.Members[0].Name != "limit" || cfg.Members[0].Datatype != "Int" {
		t.Errorf("first child = %+v", cfg.Members[0])
	}
	inner := cfg.Members[1]
	if !inner.IsStruct() || len(inner.Members) != 1 || inner.Members[0].Name != "flag" {
		t.Errorf("inner = %+v", inner)
	}
}

func TestParseRetainSection(t *testing.T) {
	doc := parse(t, `FUNCTION_BLOCK "R"
VAR
  a : Int;
END_VAR
VAR RETAIN
  counter : DInt;
END_VAR
BEGIN
END_FUNCTION_BLOCK`)
	static := doc.Sections[block.SectionStatic]
	if len(static) != 2 {
		t.Fatalf("static = %+v", static)
	}
	if static[0].Retain || !static[1].Retain {
		t.Errorf("retain flags = %v, %v", static[0].Retain, static[1].Retain)
	}
}

func TestParseMemberDetails(t *testing.T) {
	doc := parse(t, `FUNCTION_BLOCK "D"
VAR
  timer {InstructionName := 'TON'; LibVersion := '1.0'} : TON;
  hist : Array[0..9] of Real := 0.0;   // last readings
  grid : Array[0..3, 0..3] of Int;
END_VAR
BEGIN
END_FUNCTION_BLOCK`)
	static := doc.Sections[block.SectionStatic]
	if len(static) != 3 {
		t.Fatalf("static = %+v", static)
	}
	timer := static[0]
	if timer.Attributes["InstructionName"] != "TON" || timer.Attributes["LibVersion"] != "1.0" {
		t.Errorf("attributes = %+v", timer.Attributes)
	}
	hist := static[1]
	if len(hist.Bounds) != 1 || hist.Bounds[0] != (block.Bound{Lower: 0, Upper: 9}) {
		t.Errorf("bounds = %+v", hist.Bounds)
	}
	if hist.Datatype != "Real" || hist.Default != "0.0" || hist.Comment != "last readings" {
		t.Errorf("hist = %+v", hist)
	}
	grid := static[2]
	if len(grid.Bounds) != 2 || grid.Bounds[1] != (block.Bound{Lower: 0, Upper: 3}) {
		t.Errorf("grid bounds = %+v", grid.Bounds)
	}
}

func TestParseDataBlockHasNoCode(t *testing.T) {
	doc := parse(t, `DATA_BLOCK "DB_Data"
VAR
  value : Int;
END_VAR
END_DATA_BLOCK`)
	if doc.Metadata.Kind != block.KindGlobalDB {
		t.Fatalf("kind = %s", doc.Metadata.Kind)
	}
	if doc.Metadata.Language != "DB" {
		t.Errorf("language = %q, want DB", doc.Metadata.Language)
	}
	if len(doc.Code) != 0 {
		t.Errorf("code = %q, want empty", doc.Code)
	}
}

func TestParseRejectsTextWithoutBlock(t *testing.T) {
	if _, err := Parse("just some text\nno declarations\n"); err == nil {
		t.Fatal("Parse accepted text without a block keyword")
	}
}

func TestEmitRoundTrip(t *testing.T) {
	doc := parse(t, minimalFB)
	out := Emit(doc)
	again := parse(t, out)

	if again.Metadata.Name != "M" || again.Metadata.Kind != block.KindFB {
		t.Fatalf("metadata after round trip = %+v", again.Metadata)
	}
	in := again.Sections[block.SectionInput]
	if len(in) != 1 || in[0].Name != "x" || in[0].Datatype != "Int" {
		t.Fatalf("input after round trip = %+v", in)
	}
	if len(again.Code) != 1 || again.Code[0] != "#x := 1;" {
		t.Fatalf("code after round trip = %q", again.Code)
	}
}

func TestEmitRetainGroups(t *testing.T) {
	doc := block.NewDocument(block.KindFB)
	doc.Metadata.Name = "R"
	doc.Sections[block.SectionStatic] = []block.Member{
		{Name: "a", Datatype: "Int"},
		{Name: "counter", Datatype: "DInt", Retain: true},
	}
	out := Emit(doc)
	if !strings.Contains(out, "VAR RETAIN\n  counter : DInt;") {
		t.Fatalf("no retain group in:\n%s", out)
	}
	again := parse(t, out)
	static := again.Sections[block.SectionStatic]
	if len(static) != 2 || !static[1].Retain {
		t.Fatalf("retain lost in round trip: %+v", static)
	}
}

func TestEmitFunctionDeclLine(t *testing.T) {
	doc := block.NewDocument(block.KindFC)
	doc.Metadata.Name = "Calc"
	doc.Metadata.ReturnType = "Int"
	out := Emit(doc)
	if !strings.HasPrefix(out, `FUNCTION "Calc" : Int`) {
		t.Fatalf("declaration line wrong:\n%s", out)
	}
}

func TestEmitIndentsCode(t *testing.T) {
	doc := block.NewDocument(block.KindFB)
	doc.Metadata.Name = "I"
	doc.Code = []string{"IF #run THEN", "#x := 1;", "END_IF;"}
	out := Emit(doc)
	if !strings.Contains(out, "\n    #x := 1;\n") {
		t.Fatalf("body not indented under IF:\n%s", out)
	}
}
