// Package udt converts user-defined struct types between the TIA
// Openness PlcStruct XML export and the .udt text form. It is the
// declaration-only peer of the block pipeline: the same Member model,
// one implicit section, no code region.
package udt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/thorn-jmh/errorst"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/scl"
)

// Type is one user-defined struct type: a reduced header plus the flat
// top-level member list.
type Type struct {
	Meta    block.TypeMetadata
	Members []block.Member
}

// ErrNoTypeKeyword is returned when the text contains no TYPE declaration.
var ErrNoTypeKeyword = errorst.NewError("no TYPE declaration found in .udt source")

var (
	typeNameRe = regexp.MustCompile(`(?i)^TYPE\s+"([^"]+)"`)
	verRe      = regexp.MustCompile(`(?i)^VERSION\s*:\s*(\S+)`)
)

// ParseText reads the .udt text form. Author and family ride in the
// header comment lines; the first other comment becomes the description.
func ParseText(content string) (*Type, error) {
	content = strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
	lines := strings.Split(content, "\n")

	t := &Type{Meta: block.TypeMetadata{Version: "0.1"}}
	found := false
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case typeNameRe.MatchString(line):
			t.Meta.Name = typeNameRe.FindStringSubmatch(line)[1]
			found = true
		case verRe.MatchString(line):
			t.Meta.Version = verRe.FindStringSubmatch(line)[1]
		case strings.HasPrefix(line, "//"):
			comment := strings.TrimSpace(line[2:])
			switch {
			case strings.HasPrefix(comment, "Author:"):
				t.Meta.Author = strings.TrimSpace(comment[len("Author:"):])
			case strings.HasPrefix(comment, "Family:"):
				t.Meta.Family = strings.TrimSpace(comment[len("Family:"):])
			case t.Meta.Description == "":
				t.Meta.Description = comment
			}
		case strings.EqualFold(line, "STRUCT"):
			members, next := scl.ParseStructBody(lines, i+1)
			t.Members = members
			i = next
		}
	}
	if !found {
		return nil, ErrNoTypeKeyword
	}
	return t, nil
}

// EmitText renders the type as .udt text.
func EmitText(t *Type) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TYPE %q\n", t.Meta.Name)
	fmt.Fprintf(&sb, "VERSION : %s\n", orDefault(t.Meta.Version, "0.1"))
	if t.Meta.Author != "" {
		sb.WriteString("   // Author: " + t.Meta.Author + "\n")
	}
	if t.Meta.Family != "" {
		sb.WriteString("   // Family: " + t.Meta.Family + "\n")
	}
	if t.Meta.Description != "" {
		sb.WriteString("   // " + t.Meta.Description + "\n")
	}
	sb.WriteString("   STRUCT\n")
	for i := range t.Members {
		writeMemberText(&sb, &t.Members[i], 2)
	}
	sb.WriteString("   END_STRUCT;\n\nEND_TYPE\n")
	return sb.String()
}

func writeMemberText(sb *strings.Builder, m *block.Member, depth int) {
	indent := strings.Repeat("   ", depth)
	if m.IsStruct() {
		line := indent + m.Name + " : STRUCT"
		if m.Comment != "" {
			line += "   // " + m.Comment
		}
		sb.WriteString(line + "\n")
		for i := range m.Members {
			writeMemberText(sb, &m.Members[i], depth+1)
		}
		sb.WriteString(indent + "END_STRUCT;\n")
		return
	}
	line := indent + m.Name + " : " + m.DatatypeText()
	if m.Default != "" {
		line += " := " + m.Default
	}
	line += ";"
	if m.Comment != "" {
		line += "   // " + m.Comment
	}
	sb.WriteString(line + "\n")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
