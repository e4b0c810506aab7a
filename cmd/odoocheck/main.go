// Package main implements the odoocheck CLI: scan, audit and fix Odoo addon sources.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/odoocheck/config"
	"github.com/viant/odoocheck/logging"
)

var (
	// configPath overrides the odoocheck.yaml lookup in the addon root
	configPath string
	logLevel   string
	logFormat  string
	// version information
	version = "dev"
)

// exitError carries a process exit code
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "odoocheck",
	Short: "Static scanner, auditor and fixer for Odoo addon sources",
	Long: `odoocheck scans an Odoo addon, cross-checks field references between models,
views and access rules, and patches what it can: missing fields, missing models,
paste artifacts and access rules.

Settings come from odoocheck.yaml in the addon root (or --config) and
ODOOCHECK_* environment variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <addon>/odoocheck.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console, json")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inferCmd)
}

// addonRoot returns the addon path argument, the working directory by default
func addonRoot(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// loadConfig loads settings for the addon and applies the global flags
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadForAddon(root, configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.NewLoggerTo(&cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// writeOutput renders into stdout of the command, or into the file at path
func writeOutput(cmd *cobra.Command, path string, render func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return render(cmd.OutOrStdout())
	}
	buffer := &bytes.Buffer{}
	if err := render(buffer); err != nil {
		return err
	}
	if err := afs.New().Upload(cmd.Context(), path, 0o644, buffer); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
