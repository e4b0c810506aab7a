// Package report renders audit reports as JSON, YAML, Markdown or a styled console summary
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/viant/odoocheck/auditor"
	"gopkg.in/yaml.v3"
)

// Format names an output format
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	Console  Format = "console"
)

// ParseFormat returns the format for a name, md and yml are accepted as aliases
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "markdown", "md":
		return Markdown, nil
	case "console", "":
		return Console, nil
	}
	return "", fmt.Errorf("unsupported report format %q", name)
}

// Write renders the report in the given format
func Write(w io.Writer, format Format, report *auditor.Report) error {
	switch format {
	case JSON:
		return WriteJSON(w, report)
	case YAML:
		return WriteYAML(w, report)
	case Markdown:
		return WriteMarkdown(w, report)
	case Console:
		return WriteConsole(w, report)
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// WriteJSON writes any value as indented JSON
func WriteJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// WriteYAML writes any value as YAML
func WriteYAML(w io.Writer, value interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	return encoder.Close()
}

// WriteMarkdown writes a summary table followed by issue tables per severity
func WriteMarkdown(w io.Writer, report *auditor.Report) error {
	builder := &strings.Builder{}
	summary := report.Summary
	fmt.Fprintf(builder, "# Audit report: %s\n\n", report.Module)
	builder.WriteString("| Metric | Count |\n|---|---|\n")
	rows := []struct {
		name  string
		value int
	}{
		{"Total issues", summary.TotalIssues},
		{"High", summary.High},
		{"Medium", summary.Medium},
		{"Low", summary.Low},
		{"Models scanned", summary.ModelsScanned},
		{"Files scanned", summary.FilesScanned},
		{"Fields scanned", summary.FieldsScanned},
	}
	for _, row := range rows {
		fmt.Fprintf(builder, "| %s | %d |\n", row.name, row.value)
	}
	for _, severity := range auditor.Severities() {
		issues := report.IssuesBySeverity[severity]
		if len(issues) == 0 {
			continue
		}
		fmt.Fprintf(builder, "\n## %s (%d)\n\n", titles[severity], len(issues))
		builder.WriteString("| File | Line | Rule | Model | Message |\n|---|---|---|---|---|\n")
		for _, issue := range issues {
			fmt.Fprintf(builder, "| %s | %s | %s | %s | %s |\n",
				cell(issue.File), line(issue.Line), issue.Rule, cell(issue.Model), cell(issue.Message))
		}
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

var titles = map[auditor.Severity]string{auditor.High: "High", auditor.Medium: "Medium", auditor.Low: "Low"}

func cell(value string) string {
	value = strings.ReplaceAll(value, "|", `\|`)
	return strings.ReplaceAll(value, "\n", " ")
}

func line(value int) string {
	if value == 0 {
		return ""
	}
	return fmt.Sprint(value)
}
