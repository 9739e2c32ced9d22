package scl

import (
	"fmt"
	"strings"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

// sectionKeywords maps section kinds to their SCL region keywords.
var sectionKeywords = map[block.SectionKind]string{
	block.SectionInput:    "VAR_INPUT",
	block.SectionOutput:   "VAR_OUTPUT",
	block.SectionInOut:    "VAR_IN_OUT",
	block.SectionStatic:   "VAR",
	block.SectionTemp:     "VAR_TEMP",
	block.SectionConstant: "VAR CONSTANT",
}

// Emit renders a canonical Document as SCL source text. Static members
// are grouped into VAR and VAR RETAIN regions by their retain flag; the
// code body is re-indented on REGION/IF/FOR/WHILE/CASE nesting.
func Emit(doc *block.Document) string {
	var sb strings.Builder

	kw := declKeyword(doc.Metadata.Kind)
	decl := fmt.Sprintf("%s %q", kw, doc.Metadata.Name)
	if doc.Metadata.Kind == block.KindFC && doc.Metadata.ReturnType != "" {
		decl += " : " + doc.Metadata.ReturnType
	}
	sb.WriteString(decl + "\n")
	if doc.Metadata.MemoryLayout == "Standard" {
		sb.WriteString("{ S7_Optimized_Access := 'FALSE' }\n")
	} else {
		sb.WriteString("{ S7_Optimized_Access := 'TRUE' }\n")
	}
	if doc.Metadata.Author != "" {
		sb.WriteString("AUTHOR : " + doc.Metadata.Author + "\n")
	}
	if doc.Metadata.Version != "" {
		sb.WriteString("VERSION : " + doc.Metadata.Version + "\n")
	}
	sb.WriteString("\n")

	for _, sec := range block.SectionOrder() {
		members, ok := doc.Sections[sec]
		if !ok {
			continue
		}
		if sec == block.SectionStatic {
			plain, retain := splitRetain(members)
			writeSection(&sb, "VAR", plain)
			writeSection(&sb, "VAR RETAIN", retain)
			continue
		}
		writeSection(&sb, sectionKeywords[sec], members)
	}

	if doc.Metadata.Kind.HasCode() {
		sb.WriteString("BEGIN\n")
		for _, line := range indentCode(doc.Code) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("END_" + kw + "\n")
	} else {
		sb.WriteString("END_" + kw + "\n")
	}
	return sb.String()
}

func declKeyword(kind block.Kind) string {
	switch kind {
	case block.KindFC:
		return "FUNCTION"
	case block.KindOB:
		return "ORGANIZATION_BLOCK"
	case block.KindGlobalDB, block.KindInstanceDB:
		return "DATA_BLOCK"
	default:
		return "FUNCTION_BLOCK"
	}
}

func splitRetain(members []block.Member) (plain, retain []block.Member) {
	for _, m := range members {
		if m.Retain {
			retain = append(retain, m)
		} else {
			plain = append(plain, m)
		}
	}
	return
}

func writeSection(sb *strings.Builder, keyword string, members []block.Member) {
	if len(members) == 0 {
		return
	}
	sb.WriteString(keyword + "\n")
	for i := range members {
		writeMember(sb, &members[i], 1)
	}
	sb.WriteString("END_VAR\n\n")
}

// writeMember renders one declaration line, recursing into inline structs.
func writeMember(sb *strings.Builder, m *block.Member, depth int) {
	indent := strings.Repeat("  ", depth)

	head := indent + m.Name
	if attrs := formatAttributes(m); attrs != "" {
		head += " " + attrs
	}

	if m.IsStruct() {
		head += " : Struct"
		if m.Comment != "" {
			head += "   // " + m.Comment
		}
		sb.WriteString(head + "\n")
		for i := range m.Members {
			writeMember(sb, &m.Members[i], depth+1)
		}
		sb.WriteString(indent + "END_STRUCT;\n")
		return
	}

	head += " : " + m.DatatypeText()
	if m.Default != "" {
		head += " := " + m.Default
	}
	head += ";"
	if m.Comment != "" {
		head += "   // " + m.Comment
	}
	sb.WriteString(head + "\n")
}

// formatAttributes renders the attribute map as a `{ K := 'V'; ... }`
// clause, keys sorted for stable output.
func formatAttributes(m *block.Member) string {
	keys := m.AttributeKeys()
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s := '%s'", k, m.Attributes[k]))
	}
	return "{ " + strings.Join(parts, "; ") + "}"
}

// indentCode applies structural indentation to body lines: one step per
// open REGION/IF/FOR/WHILE/CASE, closed by the matching END keyword.
func indentCode(code []string) []string {
	out := make([]string, 0, len(code))
	level := 0
	for _, line := range code {
		t := strings.TrimSpace(line)
		if t == "" {
			out = append(out, "")
			continue
		}
		u := strings.ToUpper(t)
		if strings.HasPrefix(u, "END_") || strings.HasPrefix(u, "ELSE") || strings.HasPrefix(u, "ELSIF") || strings.HasPrefix(u, "UNTIL") {
			if level > 0 {
				level--
			}
		}
		out = append(out, strings.Repeat("  ", level+1)+t)
		switch {
		case strings.HasPrefix(u, "REGION"),
			strings.HasPrefix(u, "IF "),
			strings.HasPrefix(u, "FOR "),
			strings.HasPrefix(u, "WHILE "),
			strings.HasPrefix(u, "REPEAT"),
			strings.HasPrefix(u, "CASE "),
			strings.HasPrefix(u, "ELSE"),
			strings.HasPrefix(u, "ELSIF"):
			level++
		}
	}
	return out
}
