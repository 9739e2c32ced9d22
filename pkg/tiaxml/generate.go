package tiaxml

import (
	"fmt"
	"strings"

	"github.com/thorn-jmh/errorst"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/scl"
)

const (
	// InterfaceNamespace is the Openness interface-section namespace.
	InterfaceNamespace = "http://www.siemens.com/automation/Openness/SW/Interface/v5"
	// StructuredTextNamespace is the namespace of the structured-code region.
	StructuredTextNamespace = "http://www.siemens.com/automation/Openness/SW/NetworkSource/StructuredText/v3"

	// DefaultUIDStart is where code-region UIds begin. The fixed document
	// wrapper (block, comment and title texts, compile unit) occupies the
	// identities below it.
	DefaultUIDStart = 21
)

// Generator emits Openness XML for one Document. The UId counter is
// instance state: concurrent generations need one Generator each.
type Generator struct {
	uid      int
	warnings []string
}

// NewGenerator returns a Generator whose UId counter starts at startUID.
// Pass DefaultUIDStart unless the caller controls the wrapper identities.
func NewGenerator(startUID int) *Generator {
	if startUID < 1 {
		startUID = DefaultUIDStart
	}
	return &Generator{uid: startUID}
}

func (g *Generator) nextUID() int {
	uid := g.uid
	g.uid++
	return uid
}

// NextUID reports the identity the next emitted node would receive.
func (g *Generator) NextUID() int { return g.uid }

// Warnings returns the per-node degradation notes collected during the
// last Generate call.
func (g *Generator) Warnings() []string { return g.warnings }

// Generate renders the Document as a complete Openness XML document.
func (g *Generator) Generate(doc *block.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", errorst.Wrap(err, "document rejected before XML generation")
	}
	md := doc.Metadata

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	sb.WriteString("<Document>\n")
	fmt.Fprintf(&sb, "  <Engineering version=%q />\n", orDefault(md.EngVersion, "V17"))
	sb.WriteString("  <DocumentInfo>\n")
	sb.WriteString("    <Created>2025-01-01T00:00:00.0000000Z</Created>\n")
	sb.WriteString("    <ExportSetting>None</ExportSetting>\n")
	sb.WriteString("  </DocumentInfo>\n")

	elem := md.Kind.XMLElement()
	fmt.Fprintf(&sb, "  <%s ID=\"0\">\n", elem)
	sb.WriteString("    <AttributeList>\n")
	sb.WriteString("      <Interface>")
	g.writeSections(&sb, doc)
	sb.WriteString("</Interface>\n")
	fmt.Fprintf(&sb, "      <MemoryLayout>%s</MemoryLayout>\n", orDefault(md.MemoryLayout, "Optimized"))
	fmt.Fprintf(&sb, "      <MemoryReserve>%s</MemoryReserve>\n", orDefault(md.MemoryReserve, "100"))
	fmt.Fprintf(&sb, "      <Name>%s</Name>\n", xmlEscape(md.Name))
	fmt.Fprintf(&sb, "      <Number>%s</Number>\n", xmlEscape(orDefault(md.Number, "1")))
	fmt.Fprintf(&sb, "      <ProgrammingLanguage>%s</ProgrammingLanguage>\n", orDefault(md.Language, "SCL"))
	if md.Kind.HasCode() {
		fmt.Fprintf(&sb, "      <SetENOAutomatically>%s</SetENOAutomatically>\n", orDefault(md.ENOSetting, "false"))
	}
	sb.WriteString("    </AttributeList>\n")

	sb.WriteString("    <ObjectList>\n")
	writeMultilingualText(&sb, 1, "Comment")
	if md.Kind.HasCode() {
		sb.WriteString("      <SW.Blocks.CompileUnit ID=\"3\" CompositionName=\"CompileUnits\">\n")
		sb.WriteString("        <AttributeList>\n")
		sb.WriteString("          <NetworkSource>")
		g.writeStructuredText(&sb, doc.Code)
		sb.WriteString("</NetworkSource>\n")
		fmt.Fprintf(&sb, "          <ProgrammingLanguage>%s</ProgrammingLanguage>\n", orDefault(md.Language, "SCL"))
		sb.WriteString("        </AttributeList>\n")
		sb.WriteString("        <ObjectList>\n")
		writeInnerMultilingualText(&sb, 4, "Comment")
		writeInnerMultilingualText(&sb, 6, "Title")
		sb.WriteString("        </ObjectList>\n")
		sb.WriteString("      </SW.Blocks.CompileUnit>\n")
	}
	writeMultilingualText(&sb, 8, "Title")
	sb.WriteString("    </ObjectList>\n")

	fmt.Fprintf(&sb, "  </%s>\n", elem)
	sb.WriteString("</Document>\n")
	return sb.String(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeMultilingualText(sb *strings.Builder, id int, composition string) {
	fmt.Fprintf(sb, "      <MultilingualText ID=\"%d\" CompositionName=%q>\n", id, composition)
	sb.WriteString("        <ObjectList>\n")
	fmt.Fprintf(sb, "          <MultilingualTextItem ID=\"%d\" CompositionName=\"Items\">\n", id+1)
	sb.WriteString("            <AttributeList>\n")
	sb.WriteString("              <Culture>en-US</Culture>\n")
	sb.WriteString("              <Text />\n")
	sb.WriteString("            </AttributeList>\n")
	sb.WriteString("          </MultilingualTextItem>\n")
	sb.WriteString("        </ObjectList>\n")
	sb.WriteString("      </MultilingualText>\n")
}

func writeInnerMultilingualText(sb *strings.Builder, id int, composition string) {
	fmt.Fprintf(sb, "          <MultilingualText ID=\"%d\" CompositionName=%q>\n", id, composition)
	sb.WriteString("            <ObjectList>\n")
	fmt.Fprintf(sb, "              <MultilingualTextItem ID=\"%d\" CompositionName=\"Items\">\n", id+1)
	sb.WriteString("                <AttributeList>\n")
	sb.WriteString("                  <Culture>en-US</Culture>\n")
	sb.WriteString("                  <Text />\n")
	sb.WriteString("                </AttributeList>\n")
	sb.WriteString("              </MultilingualTextItem>\n")
	sb.WriteString("            </ObjectList>\n")
	sb.WriteString("          </MultilingualText>\n")
}

// ── Interface sections ────────────────────────────────────────────────────────

// writeSections emits one Section per legal SectionKind. Sections with no
// members are emitted as explicit empty markers, never omitted. Functions
// always get a Return section, empty unless a return type is declared.
func (g *Generator) writeSections(sb *strings.Builder, doc *block.Document) {
	fmt.Fprintf(sb, "<Sections xmlns=%q>\n", InterfaceNamespace)
	for _, sec := range block.LegalSections(doc.Metadata.Kind) {
		if sec == block.SectionReturn {
			continue
		}
		members := doc.Sections[sec]
		if len(members) == 0 {
			fmt.Fprintf(sb, "  <Section Name=%q />\n", string(sec))
			continue
		}
		fmt.Fprintf(sb, "  <Section Name=%q>\n", string(sec))
		for i := range members {
			g.writeMember(sb, &members[i], "    ")
		}
		sb.WriteString("  </Section>\n")
	}
	if doc.Metadata.Kind == block.KindFC {
		if rt := doc.Metadata.ReturnType; rt != "" {
			sb.WriteString("  <Section Name=\"Return\">\n")
			fmt.Fprintf(sb, "    <Member Name=\"Ret_Val\" Datatype=%q />\n", rt)
			sb.WriteString("  </Section>\n")
		} else {
			sb.WriteString("  <Section Name=\"Return\" />\n")
		}
	}
	sb.WriteString("</Sections>")
}

// writeMember emits one Member element with its array bounds, start
// value, comment and attribute children, recursing for struct members.
func (g *Generator) writeMember(sb *strings.Builder, m *block.Member, indent string) {
	fmt.Fprintf(sb, "%s<Member Name=\"%s\" Datatype=\"%s\"", indent, xmlEscape(m.Name), xmlEscape(m.Datatype))

	simple := len(m.Bounds) == 0 && m.Default == "" && m.Comment == "" &&
		!m.Retain && len(m.Attributes) == 0 && len(m.Members) == 0
	if simple {
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
	if m.Retain || len(m.Attributes) > 0 {
		fmt.Fprintf(sb, "%s  <AttributeList>\n", indent)
		if m.Retain {
			fmt.Fprintf(sb, "%s    <Retain>true</Retain>\n", indent)
		}
		for _, k := range m.AttributeKeys() {
			fmt.Fprintf(sb, "%s    <%s>%s</%s>\n", indent, k, xmlEscape(m.Attributes[k]), k)
		}
		fmt.Fprintf(sb, "%s  </AttributeList>\n", indent)
	}
	if m.Default != "" {
		fmt.Fprintf(sb, "%s  <StartValue>%s</StartValue>\n", indent, xmlEscape(m.Default))
	}
	if m.Comment != "" {
		fmt.Fprintf(sb, "%s  <Comment>%s</Comment>\n", indent, xmlEscape(m.Comment))
	}
	for i := range m.Members {
		g.writeMember(sb, &m.Members[i], indent+"  ")
	}
	fmt.Fprintf(sb, "%s</Member>\n", indent)
}

// ── Structured text ───────────────────────────────────────────────────────────

// writeStructuredText re-lexes each code line and emits one XML node per
// token, with a NewLine node between lines.
func (g *Generator) writeStructuredText(sb *strings.Builder, code []string) {
	g.warnings = nil
	fmt.Fprintf(sb, "<StructuredText xmlns=%q>\n", StructuredTextNamespace)
	for i, line := range code {
		if i > 0 {
			fmt.Fprintf(sb, "  <NewLine UId=\"%d\" />\n", g.nextUID())
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, tok := range scl.GroupCalls(scl.LexLine(line)) {
			g.writeToken(sb, tok, "  ")
		}
	}
	sb.WriteString("</StructuredText>")
}

func (g *Generator) writeToken(sb *strings.Builder, tok block.Token, indent string) {
	switch tok.Kind {
	case block.TokWhitespace:
		if tok.Count <= 1 {
			fmt.Fprintf(sb, "%s<Blank UId=\"%d\" />\n", indent, g.nextUID())
		} else {
			fmt.Fprintf(sb, "%s<Blank Num=\"%d\" UId=\"%d\" />\n", indent, tok.Count, g.nextUID())
		}
	case block.TokOperator, block.TokKeyword, block.TokUnknown:
		fmt.Fprintf(sb, "%s<Token Text=\"%s\" UId=\"%d\" />\n", indent, xmlEscape(tok.Text), g.nextUID())
	case block.TokLiteral:
		g.writeConstant(sb, "LiteralConstant", tok.Text, indent)
	case block.TokTyped:
		g.writeConstant(sb, "TypedConstant", tok.Text, indent)
	case block.TokComment:
		fmt.Fprintf(sb, "%s<LineComment UId=\"%d\">\n", indent, g.nextUID())
		fmt.Fprintf(sb, "%s  <Text>%s</Text>\n", indent, xmlEscape(tok.Text))
		fmt.Fprintf(sb, "%s</LineComment>\n", indent)
	case block.TokVariable:
		if tok.Access == nil {
			g.warn("variable token without access payload")
			return
		}
		g.writeAccess(sb, tok.Access, indent)
	case block.TokCall:
		if tok.Call == nil {
			g.warn("call token without call payload")
			return
		}
		g.writeCall(sb, tok.Call, indent)
	default:
		g.warn(fmt.Sprintf("token kind %d has no XML form, skipped", tok.Kind))
	}
}

func (g *Generator) writeConstant(sb *strings.Builder, scope, value, indent string) {
	fmt.Fprintf(sb, "%s<Access Scope=%q UId=\"%d\">\n", indent, scope, g.nextUID())
	fmt.Fprintf(sb, "%s  <Constant UId=\"%d\">\n", indent, g.nextUID())
	fmt.Fprintf(sb, "%s    <ConstantValue UId=\"%d\">%s</ConstantValue>\n", indent, g.nextUID(), xmlEscape(value))
	fmt.Fprintf(sb, "%s  </Constant>\n", indent)
	fmt.Fprintf(sb, "%s</Access>\n", indent)
}

// writeAccess emits an Access node with the full Symbol/Component chain.
// Component subscripts are emitted as bracket tokens around the nested
// index expression so array-of-struct chains survive.
func (g *Generator) writeAccess(sb *strings.Builder, a *block.Access, indent string) {
	fmt.Fprintf(sb, "%s<Access Scope=%q UId=\"%d\">\n", indent, string(a.Scope), g.nextUID())
	g.writeSymbol(sb, a, indent+"  ")
	fmt.Fprintf(sb, "%s</Access>\n", indent)
}

func (g *Generator) writeSymbol(sb *strings.Builder, a *block.Access, indent string) {
	fmt.Fprintf(sb, "%s<Symbol UId=\"%d\">\n", indent, g.nextUID())
	for _, comp := range a.Components {
		if len(comp.Index) == 0 {
			fmt.Fprintf(sb, "%s  <Component Name=\"%s\" UId=\"%d\" />\n", indent, xmlEscape(comp.Name), g.nextUID())
			continue
		}
		fmt.Fprintf(sb, "%s  <Component Name=\"%s\" UId=\"%d\">\n", indent, xmlEscape(comp.Name), g.nextUID())
		fmt.Fprintf(sb, "%s    <Token Text=\"[\" UId=\"%d\" />\n", indent, g.nextUID())
		for _, idx := range comp.Index {
			g.writeToken(sb, idx, indent+"    ")
		}
		fmt.Fprintf(sb, "%s    <Token Text=\"]\" UId=\"%d\" />\n", indent, g.nextUID())
		fmt.Fprintf(sb, "%s  </Component>\n", indent)
	}
	fmt.Fprintf(sb, "%s</Symbol>\n", indent)
}

// writeCall emits a Call access: the instance symbol, the parenthesis
// and comma tokens, and one Parameter element per named argument.
func (g *Generator) writeCall(sb *strings.Builder, c *block.Call, indent string) {
	blockType := "FB"
	if c.Callee.Scope != block.ScopeLocal {
		blockType = "FC"
	}
	calleeName := ""
	if len(c.Callee.Components) > 0 {
		calleeName = c.Callee.Components[len(c.Callee.Components)-1].Name
	}

	fmt.Fprintf(sb, "%s<Access Scope=\"Call\" UId=\"%d\">\n", indent, g.nextUID())
	fmt.Fprintf(sb, "%s  <CallInfo Name=\"%s\" BlockType=\"%s\" UId=\"%d\">\n", indent, xmlEscape(calleeName), blockType, g.nextUID())

	fmt.Fprintf(sb, "%s    <Instance Scope=%q UId=\"%d\">\n", indent, string(c.Callee.Scope), g.nextUID())
	g.writeSymbol(sb, &c.Callee, indent+"      ")
	fmt.Fprintf(sb, "%s    </Instance>\n", indent)

	fmt.Fprintf(sb, "%s    <Token Text=\"(\" UId=\"%d\" />\n", indent, g.nextUID())
	for i, p := range c.Params {
		if i > 0 {
			fmt.Fprintf(sb, "%s    <Token Text=\",\" UId=\"%d\" />\n", indent, g.nextUID())
			fmt.Fprintf(sb, "%s    <Blank UId=\"%d\" />\n", indent, g.nextUID())
		}
		op := p.Op
		if op == "" {
			op = ":="
		}
		fmt.Fprintf(sb, "%s    <Parameter Name=\"%s\" UId=\"%d\">\n", indent, xmlEscape(p.Name), g.nextUID())
		fmt.Fprintf(sb, "%s      <Blank UId=\"%d\" />\n", indent, g.nextUID())
		fmt.Fprintf(sb, "%s      <Token Text=%q UId=\"%d\" />\n", indent, op, g.nextUID())
		fmt.Fprintf(sb, "%s      <Blank UId=\"%d\" />\n", indent, g.nextUID())
		for _, v := range p.Value {
			g.writeToken(sb, v, indent+"      ")
		}
		fmt.Fprintf(sb, "%s    </Parameter>\n", indent)
	}
	fmt.Fprintf(sb, "%s    <Token Text=\")\" UId=\"%d\" />\n", indent, g.nextUID())
	fmt.Fprintf(sb, "%s  </CallInfo>\n", indent)
	fmt.Fprintf(sb, "%s</Access>\n", indent)
}

func (g *Generator) warn(msg string) {
	g.warnings = append(g.warnings, msg)
}
