// Package tiaxml converts between the canonical block Document and the
// TIA Portal Openness XML dialect: a generator that emits the block
// document with per-node UId assignment, and an extractor that walks the
// dialect back into a Document.
//
// The extractor parses into a generic node tree and reads known paths
// from it instead of modelling the full Openness schema; element names
// are matched on their local part so namespace variations across TIA
// versions do not matter.
package tiaxml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []*xmlNode `xml:",any"`
}

func parseTree(data []byte) (*xmlNode, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) intAttr(name string, def int) int {
	v := n.attr(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (n *xmlNode) child(localName string) *xmlNode {
	for _, c := range n.Children {
		if c.XMLName.Local == localName {
			return c
		}
	}
	return nil
}

func (n *xmlNode) allChildren(localName string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.Children {
		if c.XMLName.Local == localName {
			out = append(out, c)
		}
	}
	return out
}

// findDeep returns the first descendant (depth-first) whose local name
// matches.
func (n *xmlNode) findDeep(localName string) *xmlNode {
	for _, c := range n.Children {
		if c.XMLName.Local == localName {
			return c
		}
		if found := c.findDeep(localName); found != nil {
			return found
		}
	}
	return nil
}

// findSuffix returns the first descendant whose local name ends with the
// given suffix, e.g. ".FB" for any SW.Blocks.FB variant.
func (n *xmlNode) findSuffix(suffix string) *xmlNode {
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

func (n *xmlNode) text() string {
	if n == nil {
		return ""
	}
	return n.Content
}

// textDeep collects all character data below the node.
func (n *xmlNode) textDeep() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(n.Content)
	for _, c := range n.Children {
		sb.WriteString(c.textDeep())
	}
	return sb.String()
}

// childText returns the trimmed text of a named child, or def when the
// child is absent.
func (n *xmlNode) childText(localName, def string) string {
	c := n.child(localName)
	if c == nil {
		return def
	}
	return strings.TrimSpace(c.Content)
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
