package auditor

import (
	"sort"

	"github.com/viant/odoocheck/inspector/graph"
)

// Summary holds issue counters, TotalIssues always equals High+Medium+Low
type Summary struct {
	TotalIssues   int `json:"totalIssues" yaml:"totalIssues"`
	High          int `json:"high" yaml:"high"`
	Medium        int `json:"medium" yaml:"medium"`
	Low           int `json:"low" yaml:"low"`
	ModelsScanned int `json:"modelsScanned" yaml:"modelsScanned"`
	FilesScanned  int `json:"filesScanned" yaml:"filesScanned"`
	FieldsScanned int `json:"fieldsScanned" yaml:"fieldsScanned"`
}

// Report represents the outcome of an audit
type Report struct {
	Module           string                `json:"module" yaml:"module"`
	RootPath         string                `json:"rootPath" yaml:"rootPath"`
	Summary          Summary               `json:"summary" yaml:"summary"`
	IssuesBySeverity map[Severity][]*Issue `json:"issuesBySeverity" yaml:"issuesBySeverity"`
	Issues           []*Issue              `json:"issues" yaml:"issues"`
	Relationships    []*RelationshipRef    `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// NewReport creates an empty report with scan counters of the module
func NewReport(module *graph.Module) *Report {
	report := &Report{
		Module:           module.Name,
		RootPath:         module.RootPath,
		IssuesBySeverity: map[Severity][]*Issue{High: {}, Medium: {}, Low: {}},
	}
	models := module.Models()
	report.Summary.ModelsScanned = len(models)
	report.Summary.FilesScanned = len(module.Files)
	for _, model := range models {
		report.Summary.FieldsScanned += len(model.Fields)
	}
	return report
}

// Add appends issues
func (r *Report) Add(issues ...*Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Finalize sorts issues, groups them by severity and recomputes counters
func (r *Report) Finalize() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		left, right := r.Issues[i], r.Issues[j]
		if rank(left.Severity) != rank(right.Severity) {
			return rank(left.Severity) < rank(right.Severity)
		}
		if left.File != right.File {
			return left.File < right.File
		}
		if left.Line != right.Line {
			return left.Line < right.Line
		}
		return left.Rule < right.Rule
	})
	r.IssuesBySeverity = map[Severity][]*Issue{High: {}, Medium: {}, Low: {}}
	r.Summary.High, r.Summary.Medium, r.Summary.Low = 0, 0, 0
	for _, issue := range r.Issues {
		switch issue.Severity {
		case High:
			r.Summary.High++
		case Medium:
			r.Summary.Medium++
		default:
			issue.Severity = Low
			r.Summary.Low++
		}
		r.IssuesBySeverity[issue.Severity] = append(r.IssuesBySeverity[issue.Severity], issue)
	}
	r.Summary.TotalIssues = r.Summary.High + r.Summary.Medium + r.Summary.Low
}

// MissingFields returns fields the fixer may declare, keyed by model name.
// Only issues naming a scanned model are included, checks restricts the issues considered
func (r *Report) MissingFields(module *graph.Module, checks ...Check) map[string][]string {
	result := map[string][]string{}
	seen := map[string]bool{}
	allowed := map[Check]bool{}
	for _, check := range checks {
		allowed[check] = true
	}
	for _, issue := range r.Issues {
		if issue.MissingField == "" || issue.Model == "" || module.LookupModel(issue.Model) == nil {
			continue
		}
		if len(allowed) > 0 && !allowed[issue.Check] {
			continue
		}
		key := issue.Model + "." + issue.MissingField
		if seen[key] {
			continue
		}
		seen[key] = true
		result[issue.Model] = append(result[issue.Model], issue.MissingField)
	}
	return result
}

// Filter returns issues of the given check
func (r *Report) Filter(check Check) []*Issue {
	var result []*Issue
	for _, issue := range r.Issues {
		if issue.Check == check {
			result = append(result, issue)
		}
	}
	return result
}

// Severities lists severities from highest to lowest
func Severities() []Severity {
	return []Severity{High, Medium, Low}
}

func rank(severity Severity) int {
	switch severity {
	case High:
		return 0
	case Medium:
		return 1
	}
	return 2
}
