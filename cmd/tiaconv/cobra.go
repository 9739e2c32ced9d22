package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/config"
	"github.com/dgwoOstjfn/tia-portal-mcp-server/pkg/convert"
)

var (
	outputFile string
	tiaVersion string
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "tiaconv <subcommand> [-o <file>] <input>",
	Short:         "Convert PLC blocks between SCL, Openness XML and canonical JSON",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		var err error
		cfg, err = config.Load(configFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: input with swapped extension)")
	rootCmd.PersistentFlags().StringVar(&tiaVersion, "tia", "V17", "engineering version for generated exports")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML project configuration file")

	rootCmd.AddCommand(
		directionCmd("scl2json", "Convert SCL source to canonical JSON", func(in string) (*convert.Result, error) {
			return convert.SCLToJSONFile(in, outputFile)
		}),
		directionCmd("json2xml", "Convert canonical JSON to an Openness XML export", func(in string) (*convert.Result, error) {
			return convert.JSONToXMLFile(in, exportTarget(in))
		}),
		directionCmd("xml2json", "Convert an Openness XML export to canonical JSON", func(in string) (*convert.Result, error) {
			return convert.XMLToJSONFile(in, outputFile)
		}),
		directionCmd("json2scl", "Convert canonical JSON to SCL source", func(in string) (*convert.Result, error) {
			return convert.JSONToSCLFile(in, outputFile)
		}),
		directionCmd("udt2xml", "Convert a .udt struct type to a PlcStruct export", func(in string) (*convert.Result, error) {
			return convert.UDTToXMLFile(in, outputFile, tiaVersion)
		}),
		directionCmd("xml2udt", "Convert a PlcStruct export to a .udt struct type", func(in string) (*convert.Result, error) {
			return convert.XMLToUDTFile(in, outputFile)
		}),
		roundtripCmd,
	)
}

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip <input.scl>",
	Short: "Check that SCL source survives the XML round trip unchanged",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, in := range args {
			if err := roundtrip(in); err != nil {
				return err
			}
		}
		return nil
	},
}

// roundtrip drives a block through SCL → XML → canonical form and back,
// comparing the canonical JSON before and after. Nothing is written.
func roundtrip(in string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	doc, err := convert.SCLToDocument(string(data))
	if err != nil {
		return err
	}
	xml, genWarnings, err := convert.DocumentToXML(doc)
	if err != nil {
		return err
	}
	doc2, extWarnings, err := convert.XMLToDocument([]byte(xml))
	if err != nil {
		return err
	}
	for _, w := range append(genWarnings, extWarnings...) {
		fmt.Printf("  warning: %s\n", w)
	}
	before, err := convert.DocumentToJSON(doc)
	if err != nil {
		return err
	}
	after, err := convert.DocumentToJSON(doc2)
	if err != nil {
		return err
	}
	if !bytes.Equal(before, after) {
		return fmt.Errorf("%s: canonical form changed across the XML round trip", in)
	}
	fmt.Printf("%s: roundtrip OK\n", in)
	return nil
}

// exportTarget resolves where a generated XML export lands: the -o flag
// wins, then the configured import directory, then the input's directory.
func exportTarget(in string) string {
	if outputFile != "" {
		return outputFile
	}
	if cfg != nil && cfg.ImportXMLPath != "" {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		return filepath.Join(cfg.ImportXMLPath, base+".xml")
	}
	return ""
}

// directionCmd builds one conversion subcommand: a single input argument,
// the shared flags, and a summary line per converted file.
func directionCmd(use, short string, run func(in string) (*convert.Result, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <input>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, in := range args {
				res, err := run(in)
				if err != nil {
					return err
				}
				fmt.Printf("%s -> %s\n", in, res.OutputPath)
				for _, w := range res.Warnings {
					fmt.Printf("  warning: %s\n", w)
				}
			}
			return nil
		},
	}
}
