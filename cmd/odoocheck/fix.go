package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/report"
)

var (
	fixModel       string
	fixFields      []string
	fixDryRun      bool
	fixClean       bool
	fixAccessRules bool
	fixFormat      string
)

// fixCmd declares missing fields
var fixCmd = &cobra.Command{
	Use:   "fix [addon]",
	Short: "Declare missing fields, optionally clean artifacts and add access rules",
	Long: `Declare fields referenced by @api.depends, views and mapped calls on self
but missing from their model. Field types are inferred from field names.
New fields are grouped under a single marker comment, running fix twice adds nothing.

Examples:
  # Declare every missing field found by the audit
  odoocheck fix ./records_management

  # Declare named fields on one model, without writing
  odoocheck fix ./records_management --model records.container --fields barcode,weight --dry-run

  # Also strip paste artifacts and add access rules
  odoocheck fix ./records_management --clean --access-rules`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixModel, "model", "", "model receiving --fields")
	fixCmd.Flags().StringSliceVar(&fixFields, "fields", nil, "field names to declare on --model")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "compute changes without writing them")
	fixCmd.Flags().BoolVar(&fixClean, "clean", false, "strip paste artifacts first")
	fixCmd.Flags().BoolVar(&fixAccessRules, "access-rules", false, "add access rules for models lacking any")
	fixCmd.Flags().StringVarP(&fixFormat, "format", "f", "console", "output format: console, json, yaml")
}

func runFix(cmd *cobra.Command, args []string) error {
	if len(fixFields) > 0 && fixModel == "" {
		return fmt.Errorf("--fields requires --model")
	}
	root := addonRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(fixFormat)
	if err != nil {
		return err
	}
	if fixDryRun {
		cfg.Fixer.DryRun = true
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	scanner := inspector.NewScanner(cfg.Graph())
	aFixer := fixer.New(&cfg.Fixer, logger)
	module, err := scanner.Scan(ctx, root)
	if err != nil {
		return err
	}
	var changes []*fixer.Change
	if fixClean {
		cleaned, err := aFixer.CleanModule(ctx, module)
		changes = append(changes, cleaned...)
		if err != nil {
			return err
		}
		if module, err = scanner.Scan(ctx, root); err != nil {
			return err
		}
	}

	if fixModel != "" {
		var names []string
		for _, name := range fixFields {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		change, err := aFixer.AddFields(ctx, module, fixModel, names)
		if err != nil {
			return err
		}
		if change != nil {
			changes = append(changes, change)
		}
	} else {
		audit := auditor.New(&cfg.Audit, logger).Audit(ctx, module)
		missing := audit.MissingFields(module, auditor.CheckAPIDepends, auditor.CheckViewFields, auditor.CheckMappedCalls)
		added, err := aFixer.AddMissingFields(ctx, module, missing)
		changes = append(changes, added...)
		if err != nil {
			return err
		}
	}

	if fixAccessRules {
		if module, err = scanner.Scan(ctx, root); err != nil {
			return err
		}
		change, err := aFixer.AddAccessRules(ctx, module)
		if err != nil {
			return err
		}
		if change != nil {
			changes = append(changes, change)
		}
	}

	return writeOutput(cmd, "", func(w io.Writer) error {
		switch format {
		case report.JSON:
			return report.WriteJSON(w, changes)
		case report.YAML:
			return report.WriteYAML(w, changes)
		}
		return report.WriteChanges(w, changes)
	})
}
