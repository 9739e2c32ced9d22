package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/thorn-jmh/errorst"
)

// Result is the envelope every file conversion returns: where the
// artifact landed plus the warnings collected on the way.
type Result struct {
	OutputPath string
	Warnings   []string
}

// derivePath replaces the input extension when no output path is given.
func derivePath(in, out, ext string) string {
	if out != "" {
		return out
	}
	base := strings.TrimSuffix(in, filepath.Ext(in))
	return base + ext
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorst.Wrap(ErrIOFailure, "cannot read %s: %v", path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errorst.Wrap(ErrIOFailure, "cannot write %s: %v", path, err)
	}
	return nil
}

// SCLToJSONFile converts an SCL source file to canonical JSON.
func SCLToJSONFile(in, out string) (*Result, error) {
	data, err := readInput(in)
	if err != nil {
		return nil, err
	}
	doc, err := SCLToDocument(string(data))
	if err != nil {
		return nil, err
	}
	js, err := DocumentToJSON(doc)
	if err != nil {
		return nil, err
	}
	out = derivePath(in, out, ".json")
	if err := writeOutput(out, js); err != nil {
		return nil, err
	}
	return &Result{OutputPath: out}, nil
}

// JSONToXMLFile converts canonical JSON to an Openness XML export.
func JSONToXMLFile(in, out string) (*Result, error) {
	data, err := readInput(in)
	if err != nil {
		return nil, err
	}
	doc, err := JSONToDocument(data)
	if err != nil {
		return nil, err
	}
	xml, warnings, err := DocumentToXML(doc)
	if err != nil {
		return nil, err
	}
	out = derivePath(in, out, ".xml")
	if err := writeOutput(out, []byte(xml)); err != nil {
		return nil, err
	}
	return &Result{OutputPath: out, Warnings: warnings}, nil
}

// XMLToJSONFile converts an Openness XML export to canonical JSON.
func XMLToJSONFile(in, out string) (*Result, error) {
	data, err := readInput(in)
	if err != nil {
		return nil, err
	}
	doc, warnings, err := XMLToDocument(data)
	if err != nil {
		return nil, err
	}
	js, err := DocumentToJSON(doc)
	if err != nil {
		return nil, err
	}
	out = derivePath(in, out, ".json")
	if err := writeOutput(out, js); err != nil {
		return nil, err
	}
	return &Result{OutputPath: out, Warnings: warnings}, nil
}

// JSONToSCLFile converts canonical JSON to SCL source text.
func JSONToSCLFile(in, out string) (*Result, error) {
	data, err := readInput(in)
	if err != nil {
		return nil, err
	}
	doc, err := JSONToDocument(data)
	if err != nil {
		return nil, err
	}
	text, err := DocumentToSCL(doc)
	if err != nil {
		return nil, err
	}
	out = derivePath(in, out, ".scl")
	if err := writeOutput(out, []byte(text)); err != nil {
		return nil, err
	}
	return &Result{OutputPath: out}, nil
}

// UDTToXMLFile converts a .udt text file to a PlcStruct export.
func UDTToXMLFile(in, out, engVersion string) (*Result, error) {
	data, err := readInput(in)
	if err != nil {
		return nil, err
	}
	xml, err := UDTToXML(string(data), engVersion)
	if err != nil {
		return nil, err
	}
	out = derivePath(in, out, ".xml")
	if err := writeOutput(out, []byte(xml)); err != nil {
		return nil, err
	}
	return &Result{OutputPath: out}, nil
}

// XMLToUDTFile converts a PlcStruct export to .udt text.
func XMLToUDTFile(in, out string) (*Result, error) {
	data, err := readInput(in)
	if err != nil {
		return nil, err
	}
	text, err := XMLToUDT(data)
	if err != nil {
		return nil, err
	}
	out = derivePath(in, out, ".udt")
	if err := writeOutput(out, []byte(text)); err != nil {
		return nil, err
	}
	return &Result{OutputPath: out}, nil
}
