package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixture"
	"github.com/viant/odoocheck/pipeline"
)

// execute runs the root command with args, flags start from their defaults
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			_ = slice.Replace(nil)
		} else {
			_ = flag.Value.Set(flag.DefValue)
		}
		flag.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func TestRootCmd_Commands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, name := range []string{"scan", "audit", "fix", "backup", "run", "watch", "infer"} {
		assert.Contains(t, names, name)
	}
}

func TestInferCmd(t *testing.T) {
	testCases := []struct {
		description string
		args        []string
		expect      []string
		expectErr   bool
	}{
		{
			description: "console declarations",
			args:        []string{"infer", "partner_id", "document_count", "is_active"},
			expect: []string{
				"partner_id = fields.Many2one('res.partner'",
				"document_count = fields.Integer(",
				"is_active = fields.Boolean(",
			},
		},
		{
			description: "prefixed comodel as json",
			args:        []string{"infer", "location_id", "--model-prefix", "records", "--format", "json"},
			expect:      []string{`"records.location"`},
		},
		{
			description: "invalid name",
			args:        []string{"infer", "1st-field"},
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		output, err := execute(t, testCase.args...)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		for _, expect := range testCase.expect {
			assert.Contains(t, output, expect, testCase.description)
		}
	}
}

func TestScanCmd(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	output, err := execute(t, "scan", root)
	require.NoError(t, err)
	assert.Contains(t, output, "records.container")
	assert.Contains(t, output, "records.location")
	assert.Contains(t, output, "models/records_container.py")
}

func TestAuditCmd(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	target := filepath.Join(t.TempDir(), "audit.json")

	_, err := execute(t, "audit", root, "--format", "json", "--output", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	report := &auditor.Report{}
	require.NoError(t, json.Unmarshal(data, report))
	assert.Equal(t, root, report.RootPath)
	assert.Equal(t, 1, report.Summary.High)
	assert.Equal(t, report.Summary.TotalIssues, len(report.Issues))

	_, err = execute(t, "audit", root, "--format", "json", "--output", target, "--exit-code")
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.code)

	output, err := execute(t, "audit", root, "--format", "markdown", "--check", "view_fields")
	require.NoError(t, err)
	assert.Contains(t, output, "view_field_missing")
	assert.NotContains(t, output, "mapped_field_missing")
}

func TestFixCmd_DryRun(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	before := fixture.Read(t, root, "models/records_container.py")

	output, err := execute(t, "fix", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, output, "DRY")
	assert.Contains(t, output, "barcode")
	assert.Equal(t, before, fixture.Read(t, root, "models/records_container.py"))

	_, err = execute(t, "fix", root, "--fields", "weight")
	assert.Error(t, err)
}

func TestFixCmd_Fields(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	_, err := execute(t, "fix", root, "--model", "records.container", "--fields", "barcode,weight")
	require.NoError(t, err)
	content := fixture.Read(t, root, "models/records_container.py")
	assert.Contains(t, content, "barcode = fields.Char(")
	assert.Contains(t, content, "weight = fields.Float(")
}

func TestBackupCmd(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	backupRoot := t.TempDir()

	output, err := execute(t, "backup", root, "--root", backupRoot)
	require.NoError(t, err)
	assert.Contains(t, output, "_backup_")
	created := strings.SplitN(output, " (", 2)[0]
	assert.DirExists(t, created)

	output, err = execute(t, "backup", "verify", created)
	require.NoError(t, err)
	assert.Contains(t, output, " ok: ")
}

func TestRunCmd(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	target := filepath.Join(t.TempDir(), "run.json")

	_, err := execute(t, "run", root, "--model-prefix", "records", "--backup-root", t.TempDir(),
		"--format", "json", "--output", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	result := &pipeline.Result{}
	require.NoError(t, json.Unmarshal(data, result))
	assert.Equal(t, pipeline.StatusCompleted, result.Status)
	assert.Len(t, result.Steps, 9)
	assert.Contains(t, fixture.Read(t, root, "models/records_container.py"), "barcode = fields.Char(")
}
