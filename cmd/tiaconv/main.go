// tiaconv — TIA Portal block converter
// Converts PLC blocks between SCL source text, TIA Openness XML exports,
// and the canonical JSON pivot form, plus user-defined struct types
// between PlcStruct XML and .udt text.
//
// Usage:
//
//	tiaconv <subcommand> [-o <file>] <input>
//
// Subcommands:
//
//	scl2json  SCL source          → canonical JSON
//	json2xml  canonical JSON      → Openness XML export
//	xml2json  Openness XML export → canonical JSON
//	json2scl  canonical JSON      → SCL source
//	udt2xml   .udt struct type    → PlcStruct XML export
//	xml2udt   PlcStruct XML export → .udt struct type
//	roundtrip SCL source → XML → canonical form, verified unchanged
//
// Flags:
//
//	-o       output file (default: input with swapped extension)
//	-tia     engineering version for generated exports (default "V17")
//	-config  YAML project configuration file (optional)
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
