package tiaxml

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

func minimalDoc(t *testing.T) *block.Document {
	t.Helper()
	doc := block.NewDocument(block.KindFB)
	doc.Metadata.Name = "M"
	doc.Sections[block.SectionInput] = []block.Member{{Name: "x", Datatype: "Int"}}
	doc.Code = []string{"#x := 1;"}
	return doc
}

func generate(t *testing.T, doc *block.Document) string {
	t.Helper()
	out, err := NewGenerator(DefaultUIDStart).Generate(doc)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	return out
}

func extract(t *testing.T, xml string) (*block.Document, []string) {
	t.Helper()
	doc, warnings, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	return doc, warnings
}

func TestRoundTripMinimalBlock(t *testing.T) {
	xml := generate(t, minimalDoc(t))
	doc, _ := extract(t, xml)

	if doc.Metadata.Kind != block.KindFB || doc.Metadata.Name != "M" {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}
	in := doc.Sections[block.SectionInput]
	if len(in) != 1 || in[0].Name != "x" || in[0].Datatype != "Int" {
		t.Fatalf("input section = %+v", in)
	}
	if len(doc.Code) != 1 || doc.Code[0] != "#x := 1;" {
		t.Fatalf("code = %q", doc.Code)
	}
}

func TestGenerateEmitsEverySection(t *testing.T) {
	xml := generate(t, minimalDoc(t))
	for _, name := range []string{"Input", "Output", "InOut", "Static", "Temp", "Constant"} {
		if !strings.Contains(xml, `<Section Name="`+name+`"`) {
			t.Errorf("section %s missing from XML", name)
		}
	}
	if strings.Contains(xml, `Name="Return"`) {
		t.Errorf("FB must not carry a Return section")
	}
}

func TestGenerateFunctionReturnSection(t *testing.T) {
	doc := block.NewDocument(block.KindFC)
	doc.Metadata.Name = "Calc"
	doc.Metadata.ReturnType = "Int"
	xml := generate(t, doc)
	if !strings.Contains(xml, `<Section Name="Return">`) {
		t.Fatalf("no Return section:\n%s", xml)
	}
	out, _ := extract(t, xml)
	if out.Metadata.ReturnType != "Int" {
		t.Errorf("return type after round trip = %q", out.Metadata.ReturnType)
	}
}

var uidRe = regexp.MustCompile(`UId="(\d+)"`)

func TestUIDsStrictlyIncreasingFromStart(t *testing.T) {
	doc := minimalDoc(t)
	doc.Code = []string{"#x := 1;", "IF #x > 0 THEN", "#x := #x + 1;", "END_IF;"}
	xml := generate(t, doc)

	matches := uidRe.FindAllStringSubmatch(xml, -1)
	if len(matches) == 0 {
		t.Fatal("no UIds in generated XML")
	}
	prev := -1
	for i, m := range matches {
		uid, _ := strconv.Atoi(m[1])
		if i == 0 && uid != DefaultUIDStart {
			t.Fatalf("first UId = %d, want %d", uid, DefaultUIDStart)
		}
		if uid != prev+1 && i > 0 {
			t.Fatalf("UId %d follows %d, want +1 steps", uid, prev)
		}
		prev = uid
	}
}

func TestGeneratorCustomStart(t *testing.T) {
	gen := NewGenerator(100)
	xml, err := gen.Generate(minimalDoc(t))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !strings.Contains(xml, `UId="100"`) {
		t.Error("custom start offset not applied")
	}
}

func TestRoundTripStructMember(t *testing.T) {
	doc := block.NewDocument(block.KindFB)
	doc.Metadata.Name = "S"
	doc.Sections[block.SectionStatic] = []block.Member{{
		Name:     "cfg",
		Datatype: "Struct",
		Members: []block.Member{
			{Name: "limit", Datatype: "Int", Default: "10"},
			{Name: "label", Datatype: "String", Comment: "display name"},
		},
	}}
	out, _ := extract(t, generate(t, doc))
	static := out.Sections[block.SectionStatic]
	if len(static) != 1 || !static[0].IsStruct() {
		t.Fatalf("static = %+v", static)
	}
	kids := static[0].Members
	if len(kids) != 2 {
		t.Fatalf("children = %+v", kids)
	}
	if kids[0].Name != "limit" || kids[0].Datatype != "Int" || kids[0].Default != "10" {
		t.Errorf("child 0 = %+v", kids[0])
	}
	if kids[1].Name != "label" || kids[1].Comment != "display name" {
		t.Errorf("child 1 = %+v", kids[1])
	}
}

func TestRoundTripArrayAndRetain(t *testing.T) {
	doc := block.NewDocument(block.KindFB)
	doc.Metadata.Name = "A"
	doc.Sections[block.SectionStatic] = []block.Member{{
		Name:     "hist",
		Datatype: "Real",
		Bounds:   []block.Bound{{Lower: 0, Upper: 9}},
		Retain:   true,
		Attributes: map[string]string{
			"ExternalAccessible": "False",
		},
	}}
	out, _ := extract(t, generate(t, doc))
	m := out.Sections[block.SectionStatic][0]
	if len(m.Bounds) != 1 || m.Bounds[0] != (block.Bound{Lower: 0, Upper: 9}) {
		t.Errorf("bounds = %+v", m.Bounds)
	}
	if !m.Retain {
		t.Error("retain flag lost")
	}
	if m.Attributes["ExternalAccessible"] != "False" {
		t.Errorf("attributes = %+v", m.Attributes)
	}
}

func TestRoundTripScopes(t *testing.T) {
	doc := minimalDoc(t)
	doc.Code = []string{
		`#motor.speed := "DB_Set".limit;`,
		`#max := "gc_Max";`,
		`#t := T#8s; // delay`,
	}
	out, _ := extract(t, generate(t, doc))
	if len(out.Code) != 3 {
		t.Fatalf("code = %q", out.Code)
	}
	for i, want := range doc.Code {
		if out.Code[i] != want {
			t.Errorf("line %d = %q, want %q", i, out.Code[i], want)
		}
	}
}

func TestRoundTripNestedIndexAccess(t *testing.T) {
	doc := minimalDoc(t)
	doc.Code = []string{`#tag[#index].field := 1;`}
	out, _ := extract(t, generate(t, doc))
	if out.Code[0] != `#tag[#index].field := 1;` {
		t.Errorf("code = %q", out.Code[0])
	}
}

func TestRoundTripCall(t *testing.T) {
	doc := minimalDoc(t)
	doc.Code = []string{`#fbX(I_a := #y, O_b => #z);`}
	xml := generate(t, doc)
	if !strings.Contains(xml, `<Access Scope="Call"`) {
		t.Fatalf("no call access in XML:\n%s", xml)
	}
	out, _ := extract(t, xml)
	if out.Code[0] != `#fbX(I_a := #y, O_b => #z);` {
		t.Errorf("call after round trip = %q", out.Code[0])
	}
}

func TestDataBlockHasNoCompileUnit(t *testing.T) {
	doc := block.NewDocument(block.KindGlobalDB)
	doc.Metadata.Name = "DB_Data"
	doc.Metadata.Language = "DB"
	doc.Sections[block.SectionStatic] = []block.Member{{Name: "v", Datatype: "Int"}}
	xml := generate(t, doc)
	if strings.Contains(xml, "CompileUnit") {
		t.Error("data block export carries a compile unit")
	}
	out, _ := extract(t, xml)
	if len(out.Code) != 0 {
		t.Errorf("code = %q, want empty", out.Code)
	}
}

func TestExtractDegradesPerNode(t *testing.T) {
	xml := `<?xml version="1.0" encoding="utf-8"?>
<Document>
  <Engineering version="V17" />
  <SW.Blocks.FB ID="0">
    <AttributeList>
      <Name>W</Name>
      <Interface><Sections><Section Name="Input" /></Sections></Interface>
      <NetworkSource><StructuredText>
        <Access UId="21"><Symbol UId="22"><Component Name="ok" UId="23" /></Symbol></Access>
        <Token Text=";" UId="24" />
        <Mystery UId="25" />
      </StructuredText></NetworkSource>
    </AttributeList>
  </SW.Blocks.FB>
</Document>`
	doc, warnings := extract(t, xml)
	if len(warnings) == 0 {
		t.Fatal("expected warnings for unscoped access and unknown node")
	}
	if len(doc.Code) != 1 || doc.Code[0] != ";" {
		t.Fatalf("code = %q", doc.Code)
	}
}

func TestExtractRejectsNonOpenness(t *testing.T) {
	if _, _, err := Extract([]byte("<Document><Other/></Document>")); err == nil {
		t.Fatal("Extract accepted a document without a block element")
	}
	if _, _, err := Extract([]byte("not xml at all")); err == nil {
		t.Fatal("Extract accepted malformed XML")
	}
}

func TestReflowLongCall(t *testing.T) {
	params := []string{
		"I_Start := #startButton", "I_Stop := #stopButton", "I_Reset := #resetButton",
		"O_Running => #motorRunning", "O_Fault => #motorFault",
	}
	line := `#fbMotorController(` + strings.Join(params, ", ") + `); // main drive`
	if len(line) <= reflowThreshold {
		t.Fatalf("test line too short: %d", len(line))
	}
	got := reflowLongCall(line)
	if len(got) != len(params)+2 {
		t.Fatalf("reflowed into %d lines: %q", len(got), got)
	}
	if got[1] != "    I_Start := #startButton," {
		t.Errorf("first param line = %q", got[1])
	}
	if got[len(got)-1] != "); // main drive" {
		t.Errorf("closing line = %q", got[len(got)-1])
	}
	// Token content survives: joining and collapsing whitespace is lossless.
	joined := strings.Join(got, " ")
	if strings.ReplaceAll(joined, " ", "") != strings.ReplaceAll(line, " ", "") {
		t.Errorf("reflow altered content:\n%q\n%q", joined, line)
	}
}

func TestShortLinesNotReflowed(t *testing.T) {
	line := `#fb(a := 1, b := 2, c := 3);`
	got := reflowLongCall(line)
	if len(got) != 1 || got[0] != line {
		t.Errorf("short line reflowed: %q", got)
	}
}
