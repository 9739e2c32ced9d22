package scl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thorn-jmh/errorst"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
)

// ErrNoBlockKeyword is returned when the source text contains no block
// declaration keyword at all.
var ErrNoBlockKeyword = errorst.NewError("no block-kind keyword found in SCL source")

// ── Block kind detection ──────────────────────────────────────────────────────

type kindKeyword struct {
	keyword string
	kind    block.Kind
}

// kindKeywords is checked in order: FUNCTION_BLOCK must be tested before
// FUNCTION because the latter is a prefix of the former.
var kindKeywords = []kindKeyword{
	{"FUNCTION_BLOCK", block.KindFB},
	{"ORGANIZATION_BLOCK", block.KindOB},
	{"DATA_BLOCK", block.KindGlobalDB},
	{"FUNCTION", block.KindFC},
}

// detectKind finds the first block declaration line. It returns the kind,
// the matching keyword, and the line index, or ok=false.
func detectKind(lines []string) (block.Kind, string, int, bool) {
	for i, line := range lines {
		u := strings.ToUpper(strings.TrimSpace(line))
		for _, kk := range kindKeywords {
			if u == kk.keyword || strings.HasPrefix(u, kk.keyword+" ") {
				return kk.kind, kk.keyword, i, true
			}
		}
	}
	return "", "", 0, false
}

// ── Header metadata ───────────────────────────────────────────────────────────

var (
	blockNameRe = regexp.MustCompile(`"([^"]+)"`)
	optimizedRe = regexp.MustCompile(`S7_Optimized_Access\s*:=\s*'?([A-Za-z]+)'?`)
	versionRe   = regexp.MustCompile(`(?i)^VERSION\s*:\s*([\d.]+)`)
	authorRe    = regexp.MustCompile(`(?i)^AUTHOR\s*:\s*(.+)$`)
	returnRe    = regexp.MustCompile(`"[^"]*"\s*:\s*(\S+)`)
)

func parseMetadata(lines []string, kind block.Kind, keyword string, declLine int) block.Metadata {
	md := block.Metadata{
		Kind:         kind,
		Number:       "1",
		Language:     "SCL",
		MemoryLayout: "Optimized",
		ENOSetting:   "false",
		EngVersion:   "V17",
	}
	if kind == block.KindGlobalDB || kind == block.KindInstanceDB {
		md.Language = "DB"
	}

	decl := lines[declLine]
	if m := blockNameRe.FindStringSubmatch(decl); m != nil {
		md.Name = m[1]
	}
	if kind == block.KindFC {
		if m := returnRe.FindStringSubmatch(decl); m != nil {
			md.ReturnType = m[1]
		}
	}

	// Header pragmas sit between the declaration and the first section.
	for _, line := range lines[declLine:] {
		t := strings.TrimSpace(line)
		u := strings.ToUpper(t)
		if strings.HasPrefix(u, "VAR") || u == "BEGIN" {
			break
		}
		if m := optimizedRe.FindStringSubmatch(t); m != nil {
			if strings.EqualFold(m[1], "TRUE") {
				md.MemoryLayout = "Optimized"
			} else {
				md.MemoryLayout = "Standard"
			}
		}
		if m := versionRe.FindStringSubmatch(t); m != nil {
			md.Version = m[1]
		}
		if m := authorRe.FindStringSubmatch(t); m != nil {
			md.Author = strings.TrimSpace(m[1])
		}
	}
	return md
}

// ── Section parsing ───────────────────────────────────────────────────────────

type sectionStart struct {
	kind   block.SectionKind
	retain bool
}

// classifySectionStart recognizes a VAR region opener. The qualified
// forms must be tested before plain VAR.
func classifySectionStart(upper string) (sectionStart, bool) {
	switch {
	case strings.HasPrefix(upper, "VAR_INPUT"):
		return sectionStart{kind: block.SectionInput}, true
	case strings.HasPrefix(upper, "VAR_OUTPUT"):
		return sectionStart{kind: block.SectionOutput}, true
	case strings.HasPrefix(upper, "VAR_IN_OUT"):
		return sectionStart{kind: block.SectionInOut}, true
	case strings.HasPrefix(upper, "VAR_TEMP"):
		return sectionStart{kind: block.SectionTemp}, true
	case strings.HasPrefix(upper, "VAR CONSTANT"):
		return sectionStart{kind: block.SectionConstant}, true
	case strings.HasPrefix(upper, "VAR RETAIN"):
		return sectionStart{kind: block.SectionStatic, retain: true}, true
	case upper == "VAR" || strings.HasPrefix(upper, "VAR "):
		return sectionStart{kind: block.SectionStatic}, true
	}
	return sectionStart{}, false
}

// Parse converts SCL source text into a canonical Document. The source
// must contain a block declaration keyword; everything else degrades to
// best-effort line recognition.
func Parse(content string) (*block.Document, error) {
	content = strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
	lines := strings.Split(content, "\n")

	kind, keyword, declLine, ok := detectKind(lines)
	if !ok {
		return nil, ErrNoBlockKeyword
	}

	doc := block.NewDocument(kind)
	doc.Metadata = parseMetadata(lines, kind, keyword, declLine)

	i := declLine
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		u := strings.ToUpper(t)
		if u == "BEGIN" {
			i++
			break
		}
		if ss, isStart := classifySectionStart(u); isStart {
			members, next := parseSectionBody(lines, i+1, ss.retain)
			doc.Sections[ss.kind] = append(doc.Sections[ss.kind], members...)
			i = next
			continue
		}
		if u == "END_"+keyword {
			break
		}
		i++
	}

	if kind.HasCode() {
		doc.Code = extractCode(lines, i, "END_"+keyword)
	}
	return doc, nil
}

// parseSectionBody consumes member lines until END_VAR. It returns the
// members and the index just past the closing marker.
func parseSectionBody(lines []string, start int, retain bool) ([]block.Member, int) {
	var members []block.Member
	i := start
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		u := strings.ToUpper(t)
		if strings.HasPrefix(u, "END_VAR") {
			return members, i + 1
		}
		if t == "" || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "(*") {
			i++
			continue
		}
		m, startsStruct := parseMemberLine(t)
		if m == nil {
			i++
			continue
		}
		m.Retain = retain
		if startsStruct {
			nested, next := parseStructBody(lines, i+1, retain)
			m.Members = nested
			i = next
		} else {
			i++
		}
		members = append(members, *m)
	}
	return members, i
}

// ParseStructBody reads member declarations from start until the
// matching END_STRUCT and returns them with the index just past it.
// Used by the struct-type pipeline, which has no VAR regions.
func ParseStructBody(lines []string, start int) ([]block.Member, int) {
	return parseStructBody(lines, start, false)
}

// parseStructBody consumes nested struct members until the matching
// END_STRUCT, recursing for deeper structs.
func parseStructBody(lines []string, start int, retain bool) ([]block.Member, int) {
	var members []block.Member
	i := start
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		u := strings.ToUpper(t)
		if strings.HasPrefix(u, "END_STRUCT") {
			return members, i + 1
		}
		if strings.HasPrefix(u, "END_VAR") {
			// Unterminated struct: close at the section boundary.
			return members, i
		}
		if t == "" || strings.HasPrefix(t, "//") {
			i++
			continue
		}
		m, startsStruct := parseMemberLine(t)
		if m == nil {
			i++
			continue
		}
		m.Retain = retain
		if startsStruct {
			nested, next := parseStructBody(lines, i+1, retain)
			m.Members = nested
			i = next
		} else {
			i++
		}
		members = append(members, *m)
	}
	return members, i
}

var memberNameRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*`)

// parseMemberLine matches `name {attrs} : datatype [:= default] ; // comment`.
// A `: Struct` clause without a terminating semicolon opens a multi-line
// struct declaration.
func parseMemberLine(line string) (*block.Member, bool) {
	// Trailing comment first.
	comment := ""
	if idx := strings.Index(line, "//"); idx >= 0 {
		comment = strings.TrimSpace(line[idx+2:])
		line = strings.TrimSpace(line[:idx])
	}

	nm := memberNameRe.FindStringSubmatch(line)
	if nm == nil {
		return nil, false
	}
	name := nm[1]
	rest := strings.TrimSpace(line[len(nm[0]):])

	// Attribute clause between name and colon.
	attrs := map[string]string(nil)
	if strings.HasPrefix(rest, "{") {
		end := strings.Index(rest, "}")
		if end < 0 {
			return nil, false
		}
		attrs = parseAttributes(rest[1:end])
		rest = strings.TrimSpace(rest[end+1:])
	}

	if !strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, ":=") {
		return nil, false
	}
	rest = strings.TrimSpace(rest[1:])

	terminated := strings.HasSuffix(rest, ";")
	rest = strings.TrimSpace(strings.TrimSuffix(rest, ";"))

	// Default value.
	def := ""
	if idx := strings.Index(rest, ":="); idx >= 0 {
		def = strings.TrimSpace(rest[idx+2:])
		rest = strings.TrimSpace(rest[:idx])
	}

	m := &block.Member{
		Name:       name,
		Datatype:   rest,
		Default:    def,
		Comment:    comment,
		Attributes: attrs,
	}

	if bounds, base, ok := ParseArrayDatatype(rest); ok {
		m.Bounds = bounds
		m.Datatype = base
	}

	if m.IsStruct() && !terminated {
		m.Datatype = "Struct"
		return m, true
	}
	return m, false
}

// parseAttributes splits `Key := 'Value'; Key2 := 'Value2'` into a map.
func parseAttributes(clause string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(clause, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(part[:idx])
		val := strings.Trim(strings.TrimSpace(part[idx+2:]), "'")
		if key != "" {
			attrs[key] = val
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

var arrayRe = regexp.MustCompile(`(?i)^Array\s*\[([^\]]+)\]\s+of\s+(.+)$`)

// ParseArrayDatatype splits `Array[0..9, 1..3] of Int` into bounds and
// the base datatype.
func ParseArrayDatatype(datatype string) ([]block.Bound, string, bool) {
	m := arrayRe.FindStringSubmatch(datatype)
	if m == nil {
		return nil, "", false
	}
	var bounds []block.Bound
	for _, dim := range strings.Split(m[1], ",") {
		parts := strings.SplitN(dim, "..", 2)
		if len(parts) != 2 {
			return nil, "", false
		}
		lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return nil, "", false
		}
		bounds = append(bounds, block.Bound{Lower: lo, Upper: hi})
	}
	return bounds, strings.TrimSpace(m[2]), true
}

// extractCode collects body lines from BEGIN (already consumed) up to
// the closing END keyword. Lines are stored trimmed; the emitter
// re-indents from structure.
func extractCode(lines []string, start int, endKeyword string) []string {
	var code []string
	for i := start; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if strings.ToUpper(t) == endKeyword {
			break
		}
		code = append(code, t)
	}
	for len(code) > 0 && code[0] == "" {
		code = code[1:]
	}
	for len(code) > 0 && code[len(code)-1] == "" {
		code = code[:len(code)-1]
	}
	return code
}
