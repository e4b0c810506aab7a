package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"models", "wizard", "wizards", "report"}, cfg.Scan.PythonDirs)
	assert.Equal(t, "security/ir.model.access.csv", cfg.Scan.AccessFile)
	assert.Equal(t, 2, cfg.Audit.MaxDependsDepth)
	assert.Equal(t, "base.group_user", cfg.Fixer.UserGroup)
	assert.Equal(t, "base.group_system", cfg.Fixer.ManagerGroup)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Report.Format)
	assert.False(t, cfg.Pipeline.AllowDirty)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `scan:
  python_dirs: [models]
  concurrency: 4
audit:
  max_depends_depth: 3
  external_models:
    - records.legacy
fixer:
  model_prefix: records
  manager_group: records_management.group_records_manager
backup:
  root: /tmp/odoo-backups
pipeline:
  allow_dirty: true
log:
  level: debug
  format: json
report:
  format: markdown
  metrics_file: /tmp/odoocheck.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"models"}, cfg.Scan.PythonDirs)
	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Equal(t, 3, cfg.Audit.MaxDependsDepth)
	assert.Equal(t, []string{"records.legacy"}, cfg.Audit.ExternalModels)
	assert.Equal(t, "records", cfg.Fixer.ModelPrefix)
	assert.Equal(t, "records_management.group_records_manager", cfg.Fixer.ManagerGroup)
	assert.Equal(t, "base.group_user", cfg.Fixer.UserGroup)
	assert.Equal(t, "/tmp/odoo-backups", cfg.Backup.Root)
	assert.True(t, cfg.Pipeline.AllowDirty)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/odoocheck.prom", cfg.Report.MetricsFile)

	graphConfig := cfg.Graph()
	assert.Equal(t, []string{"models"}, graphConfig.PythonDirs)
	assert.Equal(t, 4, graphConfig.Concurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "audit:\n  max_depends_depth: 3\n")
	t.Setenv("ODOOCHECK_AUDIT_MAX_DEPENDS_DEPTH", "5")
	t.Setenv("ODOOCHECK_AUDIT_EXTERNAL_MODELS", "records.legacy, records.archive")
	t.Setenv("ODOOCHECK_PIPELINE_ALLOW_DIRTY", "true")
	t.Setenv("ODOOCHECK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Audit.MaxDependsDepth)
	assert.Equal(t, []string{"records.legacy", "records.archive"}, cfg.Audit.ExternalModels)
	assert.True(t, cfg.Pipeline.AllowDirty)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadForAddon(t *testing.T) {
	addon := t.TempDir()
	writeConfig(t, addon, "fixer:\n  model_prefix: records\n")

	cfg, err := LoadForAddon(addon, "")
	require.NoError(t, err)
	assert.Equal(t, "records", cfg.Fixer.ModelPrefix)

	cfg, err = LoadForAddon(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Fixer.ModelPrefix)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		description string
		content     string
	}{
		{description: "negative concurrency", content: "scan:\n  concurrency: -1\n"},
		{description: "negative depth", content: "audit:\n  max_depends_depth: -2\n"},
		{description: "unknown log level", content: "log:\n  level: loud\n"},
		{description: "unknown report format", content: "report:\n  format: html\n"},
		{description: "malformed yaml", content: "scan: [\n"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), testCase.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
