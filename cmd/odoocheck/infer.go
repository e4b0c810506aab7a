package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/report"
)

var (
	inferModelPrefix string
	inferFormat      string
)

// inferCmd prints the field declaration inferred from names
var inferCmd = &cobra.Command{
	Use:   "infer <field>...",
	Short: "Print the field declarations inferred from field names",
	Long: `Print the declaration fix would write for each field name.

Examples:
  odoocheck infer partner_id document_ids total_count is_active
  odoocheck infer location_id --model-prefix records --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().StringVar(&inferModelPrefix, "model-prefix", "", "prefix of guessed comodels")
	inferCmd.Flags().StringVarP(&inferFormat, "format", "f", "console", "output format: console, json, yaml")
}

func runInfer(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(inferFormat)
	if err != nil {
		return err
	}
	inferrer := fixer.NewInferrer(inferModelPrefix)
	var definitions []*fixer.Definition
	for _, name := range args {
		definition, err := inferrer.Infer(strings.TrimSpace(name), nil)
		if err != nil {
			return err
		}
		definitions = append(definitions, definition)
	}
	return writeOutput(cmd, "", func(w io.Writer) error {
		switch format {
		case report.JSON:
			return report.WriteJSON(w, definitions)
		case report.YAML:
			return report.WriteYAML(w, definitions)
		}
		for _, definition := range definitions {
			if _, err := fmt.Fprintln(w, definition.Render()); err != nil {
				return err
			}
		}
		return nil
	})
}
