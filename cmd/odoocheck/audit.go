package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/report"
)

// maxExitCode keeps exit codes clear of shell reserved values
const maxExitCode = 125

var (
	auditFormat   string
	auditOutput   string
	auditExitCode bool
	auditCheck    string
)

// auditCmd audits an addon and writes a report
var auditCmd = &cobra.Command{
	Use:   "audit [addon]",
	Short: "Audit field references, relationships, views and access rules",
	Long: `Audit an addon and write a report of missing field references, unknown
comodels, view fields not found on their model and models without access rules.

Examples:
  # Colored summary
  odoocheck audit ./records_management

  # Markdown report for review
  odoocheck audit ./records_management --format markdown --output audit.md

  # Fail CI when high severity issues exist
  odoocheck audit ./records_management --exit-code`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditFormat, "format", "f", "", "report format: console, json, yaml, markdown (default report.format)")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "write the report to a file instead of stdout")
	auditCmd.Flags().BoolVar(&auditExitCode, "exit-code", false, "exit with the number of high severity issues, capped at 125")
	auditCmd.Flags().StringVar(&auditCheck, "check", "", "only report issues of one check, e.g. api_depends")
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := addonRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	name := auditFormat
	if name == "" {
		name = cfg.Report.Format
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	module, err := inspector.NewScanner(cfg.Graph()).Scan(cmd.Context(), root)
	if err != nil {
		return err
	}
	audit := auditor.New(&cfg.Audit, logger).Audit(cmd.Context(), module)
	if auditCheck != "" {
		filtered := &auditor.Report{
			Module:        audit.Module,
			RootPath:      audit.RootPath,
			Summary:       audit.Summary,
			Issues:        audit.Filter(auditor.Check(auditCheck)),
			Relationships: audit.Relationships,
		}
		filtered.Finalize()
		audit = filtered
	}
	if err = writeOutput(cmd, auditOutput, func(w io.Writer) error {
		return report.Write(w, format, audit)
	}); err != nil {
		return err
	}
	if cfg.Report.MetricsFile != "" {
		metrics := report.NewMetrics()
		metrics.ObserveReport(audit)
		if err = metrics.WriteTextfile(cfg.Report.MetricsFile); err != nil {
			return err
		}
	}
	if auditExitCode && audit.Summary.High > 0 {
		code := audit.Summary.High
		if code > maxExitCode {
			code = maxExitCode
		}
		return &exitError{code: code, message: fmt.Sprintf("%d high severity issues", audit.Summary.High)}
	}
	return nil
}
