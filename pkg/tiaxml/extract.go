package tiaxml

import (
	"fmt"
	"strings"

	"github.com/thorn-jmh/errorst"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/scl"
)

var (
	// ErrNotOpennessXML is returned when the input parses as XML but
	// contains no recognized block element.
	ErrNotOpennessXML = errorst.NewError("no SW.Blocks element found in XML document")
	// ErrBadXML is returned when the input is not well-formed XML.
	ErrBadXML = errorst.NewError("input is not well-formed XML")
)

// blockSuffixes maps the document element suffix to the block kind.
var blockSuffixes = []struct {
	suffix string
	kind   block.Kind
}{
	{".GlobalDB", block.KindGlobalDB},
	{".InstanceDB", block.KindInstanceDB},
	{".FB", block.KindFB},
	{".FC", block.KindFC},
	{".OB", block.KindOB},
}

// Extract parses an Openness XML export back into a canonical Document.
// Unrecognized code nodes degrade to warnings instead of failing the
// whole conversion.
func Extract(data []byte) (*block.Document, []string, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, nil, errorst.Wrap(ErrBadXML, "cannot parse block export: %v", err)
	}

	var blockNode *xmlNode
	var kind block.Kind
	for _, bs := range blockSuffixes {
		if n := root.findSuffix(bs.suffix); n != nil {
			blockNode, kind = n, bs.kind
			break
		}
	}
	if blockNode == nil {
		return nil, nil, ErrNotOpennessXML
	}

	ex := &extractor{}
	doc := block.NewDocument(kind)
	doc.Metadata = ex.metadata(root, blockNode, kind)
	ex.sections(doc, blockNode)
	if kind.HasCode() {
		doc.Code = ex.code(blockNode)
	}
	return doc, ex.warnings, nil
}

type extractor struct {
	warnings []string
}

func (ex *extractor) warnf(format string, args ...interface{}) {
	ex.warnings = append(ex.warnings, fmt.Sprintf(format, args...))
}

// ── Metadata ──────────────────────────────────────────────────────────────────

func (ex *extractor) metadata(root, blockNode *xmlNode, kind block.Kind) block.Metadata {
	md := block.Metadata{
		Kind:         kind,
		Number:       "1",
		Language:     "SCL",
		MemoryLayout: "Optimized",
		ENOSetting:   "false",
		EngVersion:   "V17",
	}
	if eng := root.child("Engineering"); eng != nil {
		if v := eng.attr("version"); v != "" {
			md.EngVersion = v
		}
	}
	attrs := blockNode.child("AttributeList")
	if attrs == nil {
		ex.warnf("block element has no AttributeList, using defaults")
		return md
	}
	md.Name = attrs.childText("Name", "")
	md.Number = attrs.childText("Number", md.Number)
	md.Language = attrs.childText("ProgrammingLanguage", md.Language)
	md.MemoryLayout = attrs.childText("MemoryLayout", md.MemoryLayout)
	md.MemoryReserve = attrs.childText("MemoryReserve", "")
	md.ENOSetting = attrs.childText("SetENOAutomatically", md.ENOSetting)
	md.Author = attrs.childText("HeaderAuthor", "")
	md.Version = attrs.childText("HeaderVersion", "")
	return md
}

// ── Interface sections ────────────────────────────────────────────────────────

func (ex *extractor) sections(doc *block.Document, blockNode *xmlNode) {
	sectionsNode := blockNode.findDeep("Sections")
	if sectionsNode == nil {
		ex.warnf("block has no interface sections")
		return
	}
	for _, sec := range sectionsNode.allChildren("Section") {
		name := sec.attr("Name")
		if name == "Return" {
			// The return section carries at most the implicit result member.
			if m := sec.child("Member"); m != nil {
				doc.Metadata.ReturnType = m.attr("Datatype")
			}
			continue
		}
		kind := block.SectionKind(name)
		members := ex.members(sec)
		if _, legal := doc.Sections[kind]; !legal && len(members) > 0 {
			ex.warnf("section %q is not legal for %s blocks, kept anyway", name, doc.Metadata.Kind)
		}
		doc.Sections[kind] = members
	}
}

func (ex *extractor) members(parent *xmlNode) []block.Member {
	var out []block.Member
	for _, mn := range parent.allChildren("Member") {
		out = append(out, ex.member(mn))
	}
	return out
}

// member reads one Member element. Array bounds come from either the
// ArrayBounds child or an `Array[..] of T` datatype attribute.
func (ex *extractor) member(mn *xmlNode) block.Member {
	m := block.Member{
		Name:     mn.attr("Name"),
		Datatype: mn.attr("Datatype"),
		Default:  mn.childText("StartValue", ""),
	}
	if c := mn.child("Comment"); c != nil {
		m.Comment = strings.TrimSpace(c.textDeep())
	}
	if ab := mn.child("ArrayBounds"); ab != nil {
		for _, d := range ab.allChildren("Dimension") {
			m.Bounds = append(m.Bounds, block.Bound{
				Lower: d.intAttr("Lower", 0),
				Upper: d.intAttr("Upper", 0),
			})
		}
	} else if bounds, base, ok := scl.ParseArrayDatatype(m.Datatype); ok {
		m.Bounds = bounds
		m.Datatype = base
	}
	ex.memberAttributes(mn, &m)
	m.Members = ex.members(mn)
	if len(m.Members) > 0 && m.Datatype == "" {
		m.Datatype = "Struct"
	}
	return m
}

// memberAttributes reads the AttributeList child: the Retain flag plus
// any typed attribute elements (BooleanAttribute Name="..." and friends)
// or plain named children.
func (ex *extractor) memberAttributes(mn *xmlNode, m *block.Member) {
	al := mn.child("AttributeList")
	if al == nil {
		return
	}
	for _, c := range al.Children {
		name := c.XMLName.Local
		value := strings.TrimSpace(c.Content)
		if n := c.attr("Name"); n != "" {
			name = n
		}
		if name == "Retain" {
			m.Retain = strings.EqualFold(value, "true")
			continue
		}
		if m.Attributes == nil {
			m.Attributes = make(map[string]string)
		}
		m.Attributes[name] = value
	}
}

// ── Structured text ───────────────────────────────────────────────────────────

// code walks the StructuredText region and rebuilds the body line by
// line, flushing on NewLine nodes.
func (ex *extractor) code(blockNode *xmlNode) []string {
	st := blockNode.findDeep("StructuredText")
	if st == nil {
		ex.warnf("block has no structured-text region")
		return nil
	}
	var lines []string
	var cur block.CodeLine
	flush := func() {
		lines = append(lines, strings.TrimRight(cur.Text(), " \t"))
		cur = nil
	}
	for _, n := range st.Children {
		if n.XMLName.Local == "NewLine" {
			flush()
			continue
		}
		cur = append(cur, ex.node(n)...)
	}
	if len(cur) > 0 {
		flush()
	}

	var out []string
	for _, line := range lines {
		out = append(out, reflowLongCall(line)...)
	}
	return out
}

// node converts one structured-text XML node into tokens. Unknown node
// kinds degrade to a warning and an empty result.
func (ex *extractor) node(n *xmlNode) block.CodeLine {
	switch n.XMLName.Local {
	case "Blank":
		return block.CodeLine{block.Whitespace(n.intAttr("Num", 1))}
	case "Token":
		return block.CodeLine{block.Operator(n.attr("Text"))}
	case "Access":
		return ex.access(n)
	case "LineComment", "Comment":
		text := n.childText("Text", "")
		if text == "" {
			text = strings.TrimSpace(n.textDeep())
		}
		return block.CodeLine{block.LineComment(text)}
	default:
		ex.warnf("unknown code node <%s>, skipped", n.XMLName.Local)
		return nil
	}
}

// access converts an Access node by scope. Named constants render as a
// plain reference in their scope's syntax.
func (ex *extractor) access(n *xmlNode) block.CodeLine {
	scope := n.attr("Scope")
	switch scope {
	case "LiteralConstant":
		return block.CodeLine{block.Literal(ex.constantValue(n))}
	case "TypedConstant":
		return block.CodeLine{block.TypedConstant(ex.constantValue(n))}
	case "Call":
		return ex.call(n)
	case "LocalVariable", "LocalConstant":
		return ex.symbolAccess(n, block.ScopeLocal)
	case "GlobalVariable":
		return ex.symbolAccess(n, block.ScopeGlobal)
	case "GlobalConstant":
		return ex.symbolAccess(n, block.ScopeGlobalConstant)
	default:
		ex.warnf("access scope %q not recognized, flattened to text", scope)
		text := strings.TrimSpace(n.textDeep())
		if text == "" {
			return nil
		}
		return block.CodeLine{block.Literal(text)}
	}
}

func (ex *extractor) constantValue(n *xmlNode) string {
	if cv := n.findDeep("ConstantValue"); cv != nil {
		return cv.text()
	}
	return strings.TrimSpace(n.textDeep())
}

// symbolAccess rebuilds a variable reference from the Symbol component
// chain. A named Constant without a Symbol also lands here.
func (ex *extractor) symbolAccess(n *xmlNode, scope block.Scope) block.CodeLine {
	access := block.Access{Scope: scope}
	sym := n.child("Symbol")
	if sym == nil {
		// Named constant: <Constant Name="..."/>.
		if c := n.child("Constant"); c != nil && c.attr("Name") != "" {
			access.Components = []block.Component{{Name: c.attr("Name")}}
			return block.CodeLine{block.Variable(access)}
		}
		ex.warnf("%s access without symbol, skipped", scope)
		return nil
	}
	for _, cn := range sym.allChildren("Component") {
		access.Components = append(access.Components, ex.component(cn))
	}
	if len(access.Components) == 0 {
		ex.warnf("%s access with empty component chain, skipped", scope)
		return nil
	}
	return block.CodeLine{block.Variable(access)}
}

// component reads one path component, collecting subscript tokens from
// between the bracket tokens.
func (ex *extractor) component(cn *xmlNode) block.Component {
	comp := block.Component{Name: cn.attr("Name")}
	for _, c := range cn.Children {
		if c.XMLName.Local == "Token" {
			if t := c.attr("Text"); t == "[" || t == "]" {
				continue
			}
		}
		comp.Index = append(comp.Index, ex.node(c)...)
	}
	return comp
}

// call rebuilds a structured Call from the CallInfo shape. Parameter
// elements that do not match the named-argument layout degrade to a
// flat value with the default operator.
func (ex *extractor) call(n *xmlNode) block.CodeLine {
	ci := n.child("CallInfo")
	if ci == nil {
		ex.warnf("call access without CallInfo, skipped")
		return nil
	}

	call := &block.Call{}
	if inst := ci.child("Instance"); inst != nil {
		scope := block.Scope(inst.attr("Scope"))
		if scope == "" {
			scope = block.ScopeLocal
		}
		line := ex.symbolAccess(inst, scope)
		if len(line) == 1 && line[0].Access != nil {
			call.Callee = *line[0].Access
		}
	}
	if len(call.Callee.Components) == 0 {
		// FC calls carry only the block name.
		call.Callee = block.Access{
			Scope:      block.ScopeGlobal,
			Components: []block.Component{{Name: ci.attr("Name")}},
		}
	}

	for _, pn := range ci.allChildren("Parameter") {
		call.Params = append(call.Params, ex.parameter(pn))
	}
	return block.CodeLine{{Kind: block.TokCall, Call: call}}
}

func (ex *extractor) parameter(pn *xmlNode) block.Parameter {
	p := block.Parameter{Name: pn.attr("Name"), Op: ":="}
	opSeen := false
	for _, c := range pn.Children {
		if c.XMLName.Local == "Blank" && !opSeen {
			continue
		}
		if c.XMLName.Local == "Token" && !opSeen {
			if t := c.attr("Text"); t == ":=" || t == "=>" {
				p.Op = t
				opSeen = true
				continue
			}
		}
		p.Value = append(p.Value, ex.node(c)...)
	}
	// Trim the blank right after the operator and any trailing run.
	for len(p.Value) > 0 && p.Value[0].Kind == block.TokWhitespace {
		p.Value = p.Value[1:]
	}
	for len(p.Value) > 0 && p.Value[len(p.Value)-1].Kind == block.TokWhitespace {
		p.Value = p.Value[:len(p.Value)-1]
	}
	if !opSeen {
		ex.warnf("parameter %q has no assignment operator, assuming :=", p.Name)
	}
	return p
}

// ── Long-call reflow ──────────────────────────────────────────────────────────

const reflowThreshold = 120

// reflowLongCall splits a long single-line call statement into one
// parameter per line. Lines under the threshold, or without a
// multi-parameter call shape, pass through unchanged.
func reflowLongCall(line string) []string {
	if len(line) <= reflowThreshold || !strings.Contains(line, ":=") {
		return []string{line}
	}
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return []string{line}
	}
	depth := 0
	closePos := -1
	for i := open; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closePos = i
			}
		}
		if closePos >= 0 {
			break
		}
	}
	if closePos < 0 {
		return []string{line}
	}

	params := splitTopLevel(line[open+1:closePos], ',')
	if len(params) <= 2 {
		return []string{line}
	}

	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	inner := indent + "    "
	out := []string{line[:open+1]}
	for i, p := range params {
		sep := ","
		if i == len(params)-1 {
			sep = ""
		}
		out = append(out, inner+strings.TrimSpace(p)+sep)
	}
	out = append(out, indent+strings.TrimSpace(line[closePos:]))
	return out
}

// splitTopLevel splits on the separator at parenthesis depth zero,
// ignoring separators inside quoted strings.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
