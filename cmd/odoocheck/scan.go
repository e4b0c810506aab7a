package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/report"
)

var scanFormat string

// scanCmd lists the models of an addon
var scanCmd = &cobra.Command{
	Use:   "scan [addon]",
	Short: "Scan an addon and list its models",
	Long: `Scan the python, xml and csv sources of an addon and list the models found.

Examples:
  # Scan the addon in the working directory
  odoocheck scan

  # Dump the model registry as JSON
  odoocheck scan ./records_management --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "console", "output format: console, json, yaml")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := addonRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(scanFormat)
	if err != nil {
		return err
	}
	module, err := inspector.NewScanner(cfg.Graph()).Scan(cmd.Context(), root)
	if err != nil {
		return err
	}
	return writeOutput(cmd, "", func(w io.Writer) error {
		switch format {
		case report.JSON:
			return report.WriteJSON(w, module.Models())
		case report.YAML:
			return report.WriteYAML(w, module.Models())
		}
		return report.WriteModels(w, module)
	})
}
