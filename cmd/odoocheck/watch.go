package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/report"
	"github.com/viant/odoocheck/watch"
	"go.uber.org/zap"
)

var watchDebounce time.Duration

// watchCmd re-audits an addon whenever its sources change
var watchCmd = &cobra.Command{
	Use:   "watch [addon]",
	Short: "Re-audit an addon whenever its sources change",
	Long: `Audit an addon, then audit it again after each batch of python, xml or csv
changes. Changes are batched until the addon is quiet for --debounce.

Examples:
  odoocheck watch ./records_management --debounce 1s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-auditing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := addonRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := inspector.NewScanner(cfg.Graph())
	anAuditor := auditor.New(&cfg.Audit, logger)
	out := cmd.OutOrStdout()
	audit := func(ctx context.Context) {
		module, err := scanner.Scan(ctx, root)
		if err != nil {
			logger.Error(ctx, "scan failed", zap.Error(err))
			return
		}
		if err = report.WriteConsole(out, anAuditor.Audit(ctx, module)); err != nil {
			logger.Error(ctx, "failed to write report", zap.Error(err))
		}
	}

	watcher, err := watch.New(root, watchDebounce, logger)
	if err != nil {
		return err
	}
	audit(ctx)
	fmt.Fprintf(out, "\nwatching %s, press ctrl+c to stop\n", root)
	return watcher.Run(ctx, func(ctx context.Context, paths []string) {
		fmt.Fprintf(out, "\n%d files changed\n", len(paths))
		audit(ctx)
	})
}
