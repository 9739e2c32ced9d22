// Package convert holds the per-direction conversion entry points. Each
// function reads one input document, produces one output document, and
// reports collected warnings; there is no cross-call state.
package convert

import (
	"encoding/json"

	"github.com/thorn-jmh/errorst"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/block"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/scl"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/tiaxml"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/udt"
)

// Failure taxonomy. Converters attach one of these with errorst.Wrap so
// callers can classify with errors.Is.
var (
	ErrMalformedInput       = errorst.NewError("input document is malformed")
	ErrIncompleteConstruct  = errorst.NewError("construct is incomplete")
	ErrUnsupportedConstruct = errorst.NewError("construct is not supported")
	ErrIOFailure            = errorst.NewError("file I/O failed")
)

// ── In-memory conversions ─────────────────────────────────────────────────────

// SCLToDocument parses SCL source text into the canonical Document.
func SCLToDocument(content string) (*block.Document, error) {
	doc, err := scl.Parse(content)
	if err != nil {
		return nil, errorst.Wrap(ErrMalformedInput, "%v", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, errorst.Wrap(ErrIncompleteConstruct, "%v", err)
	}
	return doc, nil
}

// DocumentToSCL renders the canonical Document as SCL source text.
func DocumentToSCL(doc *block.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", errorst.Wrap(ErrIncompleteConstruct, "%v", err)
	}
	return scl.Emit(doc), nil
}

// DocumentToXML renders the canonical Document as an Openness XML
// export, with code-node identities starting at the default offset.
func DocumentToXML(doc *block.Document) (string, []string, error) {
	gen := tiaxml.NewGenerator(tiaxml.DefaultUIDStart)
	out, err := gen.Generate(doc)
	if err != nil {
		return "", nil, errorst.Wrap(ErrIncompleteConstruct, "%v", err)
	}
	return out, gen.Warnings(), nil
}

// XMLToDocument parses an Openness XML export into the canonical
// Document.
func XMLToDocument(data []byte) (*block.Document, []string, error) {
	doc, warnings, err := tiaxml.Extract(data)
	if err != nil {
		return nil, nil, errorst.Wrap(ErrMalformedInput, "%v", err)
	}
	return doc, warnings, nil
}

// DocumentToJSON renders the canonical JSON form, indented for diffing.
func DocumentToJSON(doc *block.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errorst.Wrap(ErrUnsupportedConstruct, "%v", err)
	}
	return data, nil
}

// JSONToDocument parses the canonical JSON form.
func JSONToDocument(data []byte) (*block.Document, error) {
	var doc block.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errorst.Wrap(ErrMalformedInput, "cannot parse canonical JSON: %v", err)
	}
	if doc.Metadata.Kind == "" {
		return nil, errorst.Wrap(ErrIncompleteConstruct, "canonical JSON has no blockType")
	}
	return &doc, nil
}

// UDTToXML parses .udt text and renders it as a PlcStruct export.
func UDTToXML(content, engVersion string) (string, error) {
	t, err := udt.ParseText(content)
	if err != nil {
		return "", errorst.Wrap(ErrMalformedInput, "%v", err)
	}
	return udt.GenerateXML(t, engVersion), nil
}

// XMLToUDT parses a PlcStruct export and renders it as .udt text.
func XMLToUDT(data []byte) (string, error) {
	t, err := udt.ExtractXML(data)
	if err != nil {
		return "", errorst.Wrap(ErrMalformedInput, "%v", err)
	}
	return udt.EmitText(t), nil
}
