package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/pipeline"
	"github.com/viant/odoocheck/report"
)

var (
	runFormat      string
	runOutput      string
	runDryRun      bool
	runAllowDirty  bool
	runModelPrefix string
	runMetricsFile string
	runBackupRoot  string
)

var (
	stepStyles = map[pipeline.Status]lipgloss.Style{
		pipeline.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		pipeline.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		pipeline.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		pipeline.StatusSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
	noteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// runCmd runs the whole pipeline
var runCmd = &cobra.Command{
	Use:   "run [addon]",
	Short: "Backup, audit, fix and re-audit an addon",
	Long: `Run every step in order: backup, initial_validation, clean_artifacts,
create_missing_models, fix_fields, add_security_rules, validate_syntax,
final_validation and summary. The first failing step stops the run.

A dirty git worktree is refused unless --allow-dirty or pipeline.allow_dirty is set.
Untracked <addon>_backup_* folders left by earlier runs are not counted as changes.
Missing models are only created under --model-prefix (fixer.model_prefix).

Examples:
  odoocheck run ./records_management --model-prefix records
  odoocheck run ./records_management --dry-run --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "console", "result format: console, json, yaml")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the result to a file instead of stdout")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "compute changes without writing them")
	runCmd.Flags().BoolVar(&runAllowDirty, "allow-dirty", false, "run on a git worktree with uncommitted changes")
	runCmd.Flags().StringVar(&runModelPrefix, "model-prefix", "", "prefix of models that may be created (default fixer.model_prefix)")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "prometheus textfile receiving run metrics (default report.metrics_file)")
	runCmd.Flags().StringVar(&runBackupRoot, "backup-root", "", "folder receiving the backup (default backup.root, else the addon parent)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	root := addonRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(runFormat)
	if err != nil {
		return err
	}
	if runDryRun {
		cfg.Fixer.DryRun = true
	}
	if runAllowDirty {
		cfg.Pipeline.AllowDirty = true
	}
	if runModelPrefix != "" {
		cfg.Fixer.ModelPrefix = runModelPrefix
	}
	if runMetricsFile != "" {
		cfg.Report.MetricsFile = runMetricsFile
	}
	if runBackupRoot != "" {
		cfg.Backup.Root = runBackupRoot
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var options []pipeline.Option
	if format == report.Console && runOutput == "" {
		out := cmd.OutOrStdout()
		options = append(options, pipeline.WithProgress(func(progress pipeline.Progress) {
			if progress.Status == pipeline.StatusRunning {
				return
			}
			fmt.Fprintf(out, "[%d/%d] %s %s\n", progress.Index+1, progress.Total,
				stepStyles[progress.Status].Render(fmt.Sprintf("%-9s", progress.Status)), progress.Step)
		}))
	}
	result, runErr := pipeline.New(cfg, logger, options...).Run(cmd.Context(), root)
	if result == nil {
		return runErr
	}
	if err = writeOutput(cmd, runOutput, func(w io.Writer) error {
		switch format {
		case report.JSON:
			return report.WriteJSON(w, result)
		case report.YAML:
			return report.WriteYAML(w, result)
		}
		return writeResult(w, result)
	}); err != nil {
		return err
	}
	return runErr
}

// writeResult prints step notes and the issue totals of a run
func writeResult(w io.Writer, result *pipeline.Result) error {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "\nrun %s: %s\n", result.RunID, stepStyles[result.Status].Render(string(result.Status)))
	for _, step := range result.Steps {
		if step.Status == pipeline.StatusSkipped {
			fmt.Fprintf(builder, "  %s %s\n", stepStyles[step.Status].Render("skipped"), step.Name)
			continue
		}
		fmt.Fprintf(builder, "  %s %s (%.2fs)\n", stepStyles[step.Status].Render(string(step.Status)), step.Name, step.Seconds)
		for _, note := range step.Notes {
			builder.WriteString(noteStyle.Render("      "+note) + "\n")
		}
		if step.Error != "" {
			builder.WriteString("      " + step.Error + "\n")
		}
	}
	if result.Initial != nil && result.Final != nil {
		fmt.Fprintf(builder, "\nissues %d -> %d (high %d -> %d)\n",
			result.Initial.TotalIssues, result.Final.TotalIssues, result.Initial.High, result.Final.High)
	}
	if result.Backup != "" {
		fmt.Fprintf(builder, "backup %s\n", result.Backup)
	}
	_, err := io.WriteString(w, builder.String())
	return err
}
