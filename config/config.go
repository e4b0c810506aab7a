// Package config loads odoocheck settings from an optional YAML file and ODOOCHECK_ environment variables
package config

import (
	"fmt"

	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/logging"
	"github.com/viant/odoocheck/report"
)

// Config holds all settings
type Config struct {
	Scan     ScanConfig     `koanf:"scan"`
	Audit    auditor.Config `koanf:"audit"`
	Fixer    fixer.Config   `koanf:"fixer"`
	Backup   BackupConfig   `koanf:"backup"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Log      logging.Config `koanf:"log"`
	Report   ReportConfig   `koanf:"report"`
}

// ScanConfig selects the addon folders to inspect
type ScanConfig struct {
	PythonDirs  []string `koanf:"python_dirs"`
	XMLDirs     []string `koanf:"xml_dirs"`
	AccessFile  string   `koanf:"access_file"`
	Concurrency int      `koanf:"concurrency"`
}

// BackupConfig holds backup settings, an empty root places backups next to the addon.
// Untracked *_backup_* folders inside a git worktree do not make it dirty
type BackupConfig struct {
	Root string `koanf:"root"`
}

// PipelineConfig holds orchestrator settings
type PipelineConfig struct {
	AllowDirty bool `koanf:"allow_dirty"`
}

// ReportConfig holds report settings
type ReportConfig struct {
	Format      string `koanf:"format"`
	MetricsFile string `koanf:"metrics_file"`
}

// Graph returns the scanner configuration
func (c *Config) Graph() *graph.Config {
	return &graph.Config{
		PythonDirs:  c.Scan.PythonDirs,
		XMLDirs:     c.Scan.XMLDirs,
		AccessFile:  c.Scan.AccessFile,
		Concurrency: c.Scan.Concurrency,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if len(c.Scan.PythonDirs) == 0 {
		return fmt.Errorf("scan.python_dirs must not be empty")
	}
	if c.Scan.Concurrency < 0 {
		return fmt.Errorf("scan.concurrency must not be negative, got %d", c.Scan.Concurrency)
	}
	if c.Audit.MaxDependsDepth < 1 {
		return fmt.Errorf("audit.max_depends_depth must be at least 1, got %d", c.Audit.MaxDependsDepth)
	}
	if c.Fixer.UserGroup == "" || c.Fixer.ManagerGroup == "" {
		return fmt.Errorf("fixer.user_group and fixer.manager_group are required")
	}
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		return fmt.Errorf("report.format: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	layout := graph.DefaultConfig()
	if len(cfg.Scan.PythonDirs) == 0 {
		cfg.Scan.PythonDirs = layout.PythonDirs
	}
	if len(cfg.Scan.XMLDirs) == 0 {
		cfg.Scan.XMLDirs = layout.XMLDirs
	}
	if cfg.Scan.AccessFile == "" {
		cfg.Scan.AccessFile = layout.AccessFile
	}
	if cfg.Audit.MaxDependsDepth == 0 {
		cfg.Audit.MaxDependsDepth = auditor.DefaultMaxDependsDepth
	}
	fixerDefaults := fixer.DefaultConfig()
	if cfg.Fixer.UserGroup == "" {
		cfg.Fixer.UserGroup = fixerDefaults.UserGroup
	}
	if cfg.Fixer.ManagerGroup == "" {
		cfg.Fixer.ManagerGroup = fixerDefaults.ManagerGroup
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = string(report.Console)
	}
}
