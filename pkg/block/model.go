// Package block defines the canonical in-memory model for TIA Portal
// software artifacts: block metadata, declaration sections, members, and
// the token vocabulary shared by the SCL and XML converters.
//
// A Document is the pivot between the three exchange forms (SCL text,
// TIA Openness XML, canonical JSON). Converters build a fresh Document
// per call and never mutate one they received.
package block

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the block type of a Document.
type Kind string

const (
	KindFB         Kind = "FB"       // function block
	KindFC         Kind = "FC"       // function
	KindOB         Kind = "OB"       // organization block
	KindGlobalDB   Kind = "GlobalDB" // global data block
	KindInstanceDB Kind = "InstanceDB"
)

// HasCode reports whether this block kind carries an executable body.
// Data blocks are declaration-only.
func (k Kind) HasCode() bool {
	return k == KindFB || k == KindFC || k == KindOB
}

// XMLElement returns the Openness document element name for the kind,
// e.g. "SW.Blocks.FB".
func (k Kind) XMLElement() string {
	return "SW.Blocks." + string(k)
}

// SectionKind names one declaration group of a block interface.
type SectionKind string

const (
	SectionInput    SectionKind = "Input"
	SectionOutput   SectionKind = "Output"
	SectionInOut    SectionKind = "InOut"
	SectionStatic   SectionKind = "Static"
	SectionTemp     SectionKind = "Temp"
	SectionConstant SectionKind = "Constant"
	SectionReturn   SectionKind = "Return"
)

// sectionOrder is the emission order used by both the SCL and XML
// writers. Return is handled separately (FC only).
var sectionOrder = []SectionKind{
	SectionInput, SectionOutput, SectionInOut,
	SectionStatic, SectionTemp, SectionConstant,
}

// SectionOrder returns the fixed Input..Constant emission order.
func SectionOrder() []SectionKind {
	out := make([]SectionKind, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// JSONName returns the canonical JSON key for the section
// ("input_section", "in_out_section", ...).
func (s SectionKind) JSONName() string {
	switch s {
	case SectionInput:
		return "input_section"
	case SectionOutput:
		return "output_section"
	case SectionInOut:
		return "in_out_section"
	case SectionStatic:
		return "static_section"
	case SectionTemp:
		return "temp_section"
	case SectionConstant:
		return "constant_section"
	case SectionReturn:
		return "return_section"
	}
	return strings.ToLower(string(s)) + "_section"
}

// SectionFromJSONName is the inverse of JSONName. Unknown names map to
// the empty SectionKind.
func SectionFromJSONName(name string) SectionKind {
	for _, s := range append(SectionOrder(), SectionReturn) {
		if s.JSONName() == name {
			return s
		}
	}
	return ""
}

// LegalSections returns the section kinds a block of kind k may declare.
func LegalSections(k Kind) []SectionKind {
	switch k {
	case KindFC:
		return append(SectionOrder(), SectionReturn)
	case KindGlobalDB, KindInstanceDB:
		return []SectionKind{SectionStatic}
	default:
		return SectionOrder()
	}
}

// Metadata carries the block header attributes.
type Metadata struct {
	Name          string `json:"blockName"`
	Number        string `json:"blockNumber"`
	Kind          Kind   `json:"blockType"`
	Language      string `json:"programmingLanguage"`
	MemoryLayout  string `json:"memoryLayout"`
	MemoryReserve string `json:"memoryReserve,omitempty"`
	ENOSetting    string `json:"enoSetting"`
	EngVersion    string `json:"engineeringVersion"`
	ReturnType    string `json:"returnType,omitempty"` // FC only
	Version       string `json:"version,omitempty"`
	Author        string `json:"author,omitempty"`
	Description   string `json:"description,omitempty"`
}

// TypeMetadata is the reduced header of a user-defined struct type.
type TypeMetadata struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Author      string `json:"author,omitempty"`
	Family      string `json:"family,omitempty"`
	Description string `json:"description,omitempty"`
}

// Bound is one array dimension, inclusive on both ends.
type Bound struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Member is one variable declaration. A member whose Datatype is
// "Struct" owns a nested member list; nesting depth is unbounded.
type Member struct {
	Name       string            `json:"name"`
	Datatype   string            `json:"datatype"`
	Default    string            `json:"default_value,omitempty"`
	Comment    string            `json:"comment,omitempty"`
	Retain     bool              `json:"retain,omitempty"`
	Bounds     []Bound           `json:"array_bounds,omitempty"`
	Members    []Member          `json:"members,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// IsStruct reports whether the member declares an inline struct.
func (m *Member) IsStruct() bool {
	return strings.EqualFold(m.Datatype, "Struct")
}

// DatatypeText renders the datatype including array bounds, e.g.
// `Array[0..9] of Int` or `Array[0..9, 1..3] of Int`.
func (m *Member) DatatypeText() string {
	if len(m.Bounds) == 0 {
		return m.Datatype
	}
	var sb strings.Builder
	sb.WriteString("Array[")
	for i, b := range m.Bounds {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d..%d", b.Lower, b.Upper)
	}
	sb.WriteString("] of ")
	sb.WriteString(m.Datatype)
	return sb.String()
}

// AttributeKeys returns the attribute map keys in sorted order so that
// emitted attribute clauses are stable.
func (m *Member) AttributeKeys() []string {
	if len(m.Attributes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.Attributes))
	for k := range m.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is the canonical pivot form: metadata, one member list per
// section, and the ordered code lines. Data-block documents have an
// empty code list.
type Document struct {
	Metadata Metadata
	Sections map[SectionKind][]Member
	Code     []string
}

// NewDocument returns a Document with every legal section of the kind
// present (empty, never missing).
func NewDocument(kind Kind) *Document {
	d := &Document{
		Metadata: Metadata{Kind: kind},
		Sections: make(map[SectionKind][]Member),
	}
	for _, s := range LegalSections(kind) {
		d.Sections[s] = nil
	}
	return d
}

// Validate checks the model invariants: unique member names per section,
// struct members with non-empty nested lists, well-formed array bounds,
// and no code on data blocks.
func (d *Document) Validate() error {
	if d.Metadata.Kind == "" {
		return fmt.Errorf("document has no block kind")
	}
	if !d.Metadata.Kind.HasCode() && len(d.Code) > 0 {
		return fmt.Errorf("%s block must not carry a code body", d.Metadata.Kind)
	}
	for sec, members := range d.Sections {
		seen := make(map[string]bool, len(members))
		for i := range members {
			m := &members[i]
			if seen[m.Name] {
				return fmt.Errorf("section %s: duplicate member %q", sec, m.Name)
			}
			seen[m.Name] = true
			if err := validateMember(m, string(sec)); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateMember(m *Member, path string) error {
	where := path + "/" + m.Name
	if m.IsStruct() && len(m.Members) == 0 {
		return fmt.Errorf("%s: struct member has no nested members", where)
	}
	if !m.IsStruct() && len(m.Members) > 0 {
		return fmt.Errorf("%s: non-struct member owns a nested member list", where)
	}
	for _, b := range m.Bounds {
		if b.Lower > b.Upper {
			return fmt.Errorf("%s: array bound %d..%d inverted", where, b.Lower, b.Upper)
		}
	}
	for i := range m.Members {
		if err := validateMember(&m.Members[i], where); err != nil {
			return err
		}
	}
	return nil
}

// jsonDocument is the wire shape of the canonical JSON file.
type jsonDocument struct {
	Metadata Metadata            `json:"metadata"`
	Sections map[string][]Member `json:"sections"`
	Code     []string            `json:"code"`
}

// MarshalJSON renders the canonical JSON form with the fixed section keys.
func (d *Document) MarshalJSON() ([]byte, error) {
	jd := jsonDocument{
		Metadata: d.Metadata,
		Sections: make(map[string][]Member, len(d.Sections)),
		Code:     d.Code,
	}
	if jd.Code == nil {
		jd.Code = []string{}
	}
	for sec, members := range d.Sections {
		if members == nil {
			members = []Member{}
		}
		jd.Sections[sec.JSONName()] = members
	}
	return json.Marshal(jd)
}

// UnmarshalJSON parses the canonical JSON form. Unknown section keys are
// preserved under their literal name so no declaration is dropped.
func (d *Document) UnmarshalJSON(data []byte) error {
	var jd jsonDocument
	if err := json.Unmarshal(data, &jd); err != nil {
		return err
	}
	d.Metadata = jd.Metadata
	d.Code = jd.Code
	d.Sections = make(map[SectionKind][]Member, len(jd.Sections))
	for name, members := range jd.Sections {
		sec := SectionFromJSONName(name)
		if sec == "" {
			sec = SectionKind(name)
		}
		d.Sections[sec] = members
	}
	for _, s := range LegalSections(d.Metadata.Kind) {
		if _, ok := d.Sections[s]; !ok {
			d.Sections[s] = nil
		}
	}
	return nil
}
