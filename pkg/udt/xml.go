package udt

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/thorn-jmh/errorst"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/scl"
)

const (
	// DataTypesNamespace is the PlcStruct interface-section namespace.
	DataTypesNamespace = "http://www.siemens.com/automation/Openness/SW/DataTypes/v5"
	interfaceNamespace = "http://www.siemens.com/automation/Openness/SW/Interface/v5"
)

// ErrNoPlcStruct is returned when the XML carries no PlcStruct element.
var ErrNoPlcStruct = errorst.NewError("no PlcStruct element found in XML document")

// ── Generation ────────────────────────────────────────────────────────────────

// GenerateXML renders the type as a complete PlcStruct export document.
// All members land in a single Static section.
func GenerateXML(t *Type, engVersion string) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	sb.WriteString("<Document>\n")
	fmt.Fprintf(&sb, "  <Engineering version=%q />\n", orDefault(engVersion, "V17"))
	sb.WriteString("  <DocumentInfo>\n")
	sb.WriteString("    <Created>2025-01-01T00:00:00.0000000Z</Created>\n")
	sb.WriteString("    <ExportSetting>None</ExportSetting>\n")
	sb.WriteString("  </DocumentInfo>\n")
	sb.WriteString("  <SW.Types.PlcStruct ID=\"0\">\n")
	sb.WriteString("    <AttributeList>\n")
	fmt.Fprintf(&sb, "      <Name>%s</Name>\n", escape(t.Meta.Name))
	if t.Meta.Version != "" {
		fmt.Fprintf(&sb, "      <Version>%s</Version>\n", escape(t.Meta.Version))
	}
	if t.Meta.Author != "" {
		fmt.Fprintf(&sb, "      <Author>%s</Author>\n", escape(t.Meta.Author))
	}
	if t.Meta.Family != "" {
		fmt.Fprintf(&sb, "      <Family>%s</Family>\n", escape(t.Meta.Family))
	}
	sb.WriteString("    </AttributeList>\n")
	sb.WriteString("    <Interface>\n")
	fmt.Fprintf(&sb, "      <Sections xmlns=%q>\n", interfaceNamespace)
	sb.WriteString("        <Section Name=\"Static\">\n")
	for i := range t.Members {
		writeMemberXML(&sb, &t.Members[i], "          ")
	}
	sb.WriteString("        </Section>\n")
	sb.WriteString("      </Sections>\n")
	sb.WriteString("    </Interface>\n")
	if t.Meta.Description != "" {
		sb.WriteString("    <ObjectList>\n")
		sb.WriteString("      <MultilingualText ID=\"1\" CompositionName=\"Comment\">\n")
		sb.WriteString("        <ObjectList>\n")
		sb.WriteString("          <MultilingualTextItem ID=\"2\" CompositionName=\"Items\">\n")
		sb.WriteString("            <AttributeList>\n")
		sb.WriteString("              <Culture>en-US</Culture>\n")
		fmt.Fprintf(&sb, "              <Text>%s</Text>\n", escape(t.Meta.Description))
		sb.WriteString("            </AttributeList>\n")
		sb.WriteString("          </MultilingualTextItem>\n")
		sb.WriteString("        </ObjectList>\n")
		sb.WriteString("      </MultilingualText>\n")
		sb.WriteString("    </ObjectList>\n")
	}
	sb.WriteString("  </SW.Types.PlcStruct>\n")
	sb.WriteString("</Document>\n")
	return sb.String()
}

func writeMemberXML(sb *strings.Builder, m *block.Member, indent string) {
	fmt.Fprintf(sb, "%s<Member Name=\"%s\" Datatype=\"%s\"", indent, escape(m.Name), escape(m.Datatype))
	if len(m.Bounds) == 0 && m.Default == "" && m.Comment == "" && len(m.Members) == 0 {
		sb.WriteString(" />\n")
		return
	}
	sb.WriteString(">\n")
	if len(m.Bounds) > 0 {
		fmt.Fprintf(sb, "%s  <ArrayBounds>\n", indent)
		for _, b := range m.Bounds {
			fmt.Fprintf(sb, "%s    <Dimension Lower=\"%d\" Upper=\"%d\" />\n", indent, b.Lower, b.Upper)
		}
		fmt.Fprintf(sb, "%s  </ArrayBounds>\n", indent)
	}
	if m.Default != "" {
		fmt.Fprintf(sb, "%s  <StartValue>%s</StartValue>\n", indent, escape(m.Default))
	}
	if m.Comment != "" {
		fmt.Fprintf(sb, "%s  <Comment>%s</Comment>\n", indent, escape(m.Comment))
	}
	for i := range m.Members {
		writeMemberXML(sb, &m.Members[i], indent+"  ")
	}
	fmt.Fprintf(sb, "%s</Member>\n", indent)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// ── Extraction ────────────────────────────────────────────────────────────────

type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []*node    `xml:",any"`
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *node) child(local string) *node {
	for _, c := range n.Children {
		if c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

func (n *node) findSuffix(suffix string) *node {
	for _, c := range n.Children {
		if strings.HasSuffix(c.XMLName.Local, suffix) {
			return c
		}
		if found := c.findSuffix(suffix); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) findDeep(local string) *node {
	for _, c := range n.Children {
		if c.XMLName.Local == local {
			return c
		}
		if found := c.findDeep(local); found != nil {
			return found
		}
	}
	return nil
}

// ExtractXML parses a PlcStruct export back into a Type. The element is
// matched on its .PlcStruct suffix so both the SW.Types and SW.DataTypes
// spellings are accepted.
func ExtractXML(data []byte) (*Type, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, errorst.Wrap(err, "cannot parse struct-type export")
	}
	sn := root.findSuffix(".PlcStruct")
	if sn == nil {
		return nil, ErrNoPlcStruct
	}

	t := &Type{Meta: block.TypeMetadata{Version: "0.1"}}
	if attrs := sn.child("AttributeList"); attrs != nil {
		for _, c := range attrs.Children {
			v := strings.TrimSpace(c.Content)
			switch c.XMLName.Local {
			case "Name":
				t.Meta.Name = v
			case "Version":
				t.Meta.Version = v
			case "Author":
				t.Meta.Author = v
			case "Family":
				t.Meta.Family = v
			}
		}
	}
	if item := sn.findDeep("MultilingualTextItem"); item != nil {
		if al := item.child("AttributeList"); al != nil {
			if txt := al.child("Text"); txt != nil {
				t.Meta.Description = strings.TrimSpace(txt.Content)
			}
		}
	}
	if sections := sn.findDeep("Sections"); sections != nil {
		for _, section := range sections.Children {
			if section.XMLName.Local == "Section" {
				t.Members = append(t.Members, extractMembers(section)...)
			}
		}
	}
	return t, nil
}

func extractMembers(parent *node) []block.Member {
	var out []block.Member
	for _, mn := range parent.Children {
		if mn.XMLName.Local != "Member" {
			continue
		}
		m := block.Member{
			Name:     mn.attr("Name"),
			Datatype: mn.attr("Datatype"),
		}
		if sv := mn.child("StartValue"); sv != nil {
			m.Default = strings.TrimSpace(sv.Content)
		}
		if c := mn.child("Comment"); c != nil {
			m.Comment = commentText(c)
		}
		if ab := mn.child("ArrayBounds"); ab != nil {
			for _, d := range ab.Children {
				if d.XMLName.Local != "Dimension" {
					continue
				}
				lo, _ := strconv.Atoi(d.attr("Lower"))
				hi, _ := strconv.Atoi(d.attr("Upper"))
				m.Bounds = append(m.Bounds, block.Bound{Lower: lo, Upper: hi})
			}
		} else if bounds, base, ok := scl.ParseArrayDatatype(m.Datatype); ok {
			m.Bounds = bounds
			m.Datatype = base
		}
		m.Members = extractMembers(mn)
		if len(m.Members) > 0 && m.Datatype == "" {
			m.Datatype = "Struct"
		}
		out = append(out, m)
	}
	return out
}

// commentText reads either direct text or the multilingual item text.
func commentText(c *node) string {
	if v := strings.TrimSpace(c.Content); v != "" {
		return v
	}
	if item := c.findSuffix("MultilingualTextItem"); item != nil {
		if al := item.child("AttributeList"); al != nil {
			if txt := al.child("Text"); txt != nil {
				return strings.TrimSpace(txt.Content)
			}
		}
	}
	return ""
}
