package block

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewDocumentHasEveryLegalSection(t *testing.T) {
	doc := NewDocument(KindFC)
	for _, sec := range LegalSections(KindFC) {
		if _, ok := doc.Sections[sec]; !ok {
			t.Errorf("section %s missing", sec)
		}
	}
	if _, ok := doc.Sections[SectionReturn]; !ok {
		t.Error("FC document must carry a Return section")
	}
	if _, ok := NewDocument(KindGlobalDB).Sections[SectionInput]; ok {
		t.Error("data block must not carry an Input section")
	}
}

func TestValidateDuplicateNames(t *testing.T) {
	doc := NewDocument(KindFB)
	doc.Sections[SectionInput] = []Member{
		{Name: "x", Datatype: "Int"},
		{Name: "x", Datatype: "Bool"},
	}
	if err := doc.Validate(); err == nil {
		t.Fatal("duplicate member names accepted")
	}
}

func TestValidateStructInvariant(t *testing.T) {
	doc := NewDocument(KindFB)
	doc.Sections[SectionStatic] = []Member{{Name: "s", Datatype: "Struct"}}
	if err := doc.Validate(); err == nil {
		t.Fatal("empty struct accepted")
	}
	doc.Sections[SectionStatic] = []Member{{
		Name: "v", Datatype: "Int", Members: []Member{{Name: "x", Datatype: "Int"}},
	}}
	if err := doc.Validate(); err == nil {
		t.Fatal("non-struct member with children accepted")
	}
}

func TestValidateBoundsAndCode(t *testing.T) {
	doc := NewDocument(KindFB)
	doc.Sections[SectionStatic] = []Member{{
		Name: "a", Datatype: "Int", Bounds: []Bound{{Lower: 5, Upper: 2}},
	}}
	if err := doc.Validate(); err == nil {
		t.Fatal("inverted bounds accepted")
	}

	db := NewDocument(KindGlobalDB)
	db.Code = []string{"#x := 1;"}
	if err := db.Validate(); err == nil {
		t.Fatal("code body on a data block accepted")
	}
}

func TestJSONShape(t *testing.T) {
	doc := NewDocument(KindFB)
	doc.Metadata.Name = "M"
	doc.Metadata.EngVersion = "V17"
	doc.Sections[SectionInput] = []Member{{Name: "x", Datatype: "Int"}}
	doc.Code = []string{"#x := 1;"}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	for _, key := range []string{`"blockName":"M"`, `"blockType":"FB"`, `"input_section"`, `"static_section"`, `"code"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON lacks %s:\n%s", key, data)
		}
	}

	var again Document
	if err := json.Unmarshal(data, &again); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if again.Metadata.Name != "M" || again.Metadata.Kind != KindFB {
		t.Errorf("metadata = %+v", again.Metadata)
	}
	in := again.Sections[SectionInput]
	if len(in) != 1 || in[0].Name != "x" {
		t.Errorf("input section = %+v", in)
	}
	if len(again.Code) != 1 || again.Code[0] != "#x := 1;" {
		t.Errorf("code = %q", again.Code)
	}
}

func TestDatatypeText(t *testing.T) {
	m := Member{Datatype: "Int", Bounds: []Bound{{0, 9}, {1, 3}}}
	if got := m.DatatypeText(); got != "Array[0..9, 1..3] of Int" {
		t.Errorf("DatatypeText = %q", got)
	}
}

func TestCodeLineText(t *testing.T) {
	line := CodeLine{
		Variable(Access{Scope: ScopeLocal, Components: []Component{{Name: "x"}}}),
		Whitespace(1),
		Operator(":="),
		Whitespace(1),
		Literal("1"),
		Operator(";"),
	}
	if got := line.Text(); got != "#x := 1;" {
		t.Errorf("Text = %q", got)
	}
}
