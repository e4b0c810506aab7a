package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/inspector/graph"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	appliedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	severityStyles = map[auditor.Severity]lipgloss.Style{
		auditor.High:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		auditor.Medium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		auditor.Low:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// WriteConsole writes a colored summary and one line per issue
func WriteConsole(w io.Writer, report *auditor.Report) error {
	builder := &strings.Builder{}
	summary := report.Summary
	builder.WriteString(titleStyle.Render("odoocheck audit: "+report.Module) + "\n\n")
	counters := []struct {
		label string
		value string
	}{
		{"Files", fmt.Sprint(summary.FilesScanned)},
		{"Models", fmt.Sprint(summary.ModelsScanned)},
		{"Fields", fmt.Sprint(summary.FieldsScanned)},
		{"Issues", fmt.Sprintf("%d (%s %d, %s %d, %s %d)", summary.TotalIssues,
			severityStyles[auditor.High].Render("high"), summary.High,
			severityStyles[auditor.Medium].Render("medium"), summary.Medium,
			severityStyles[auditor.Low].Render("low"), summary.Low)},
	}
	for _, counter := range counters {
		builder.WriteString(labelStyle.Render(counter.label) + counter.value + "\n")
	}
	if len(report.Issues) > 0 {
		builder.WriteString("\n")
	}
	for _, issue := range report.Issues {
		location := issue.File
		if issue.Line > 0 {
			location = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		tag := severityStyles[issue.Severity].Render(fmt.Sprintf("%-6s", strings.ToUpper(string(issue.Severity))))
		fmt.Fprintf(builder, "%s %s %s\n", tag, locationStyle.Render(location), issue.Message)
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

// WriteModels lists the scanned models of a module with their kind and field count
func WriteModels(w io.Writer, module *graph.Module) error {
	builder := &strings.Builder{}
	builder.WriteString(titleStyle.Render("odoocheck scan: "+module.Name) + "\n\n")
	if module.Version != "" {
		builder.WriteString(labelStyle.Render("Version") + module.Version + "\n")
	}
	if len(module.Depends) > 0 {
		builder.WriteString(labelStyle.Render("Depends") + strings.Join(module.Depends, ", ") + "\n")
	}
	builder.WriteString(labelStyle.Render("Files") + fmt.Sprint(len(module.Files)) + "\n")
	builder.WriteString(labelStyle.Render("Views") + fmt.Sprint(len(module.Views)) + "\n")
	builder.WriteString(labelStyle.Render("Access rules") + fmt.Sprint(len(module.AccessRules)) + "\n\n")
	for _, model := range module.Models() {
		fmt.Fprintf(builder, "%s %-10s %3d fields  %s\n", labelStyle.Render(model.Name), model.Kind,
			len(model.Fields), locationStyle.Render(module.RelativePath(model.File)))
	}
	for _, fileError := range module.Errors {
		fmt.Fprintf(builder, "%s %s %s\n", severityStyles[auditor.High].Render("ERROR "),
			locationStyle.Render(module.RelativePath(fileError.Path)), fileError.Message)
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

// WriteChanges lists fixer changes, one line per file followed by its notes
func WriteChanges(w io.Writer, changes []*fixer.Change) error {
	builder := &strings.Builder{}
	if len(changes) == 0 {
		builder.WriteString("no changes\n")
	}
	for _, change := range changes {
		status := pendingStyle.Render("DRY   ")
		if change.Applied {
			status = appliedStyle.Render("WROTE ")
		}
		detail := strings.Join(append(append([]string{}, change.Fields...), change.Rules...), ", ")
		fmt.Fprintf(builder, "%s %-16s %s %s\n", status, change.Kind, locationStyle.Render(change.Path), detail)
		for _, note := range change.Notes {
			builder.WriteString("       " + note + "\n")
		}
	}
	_, err := io.WriteString(w, builder.String())
	return err
}
