package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/odoocheck/auditor"
)

// Metrics collects run gauges for the node exporter textfile collector
type Metrics struct {
	registry     *prometheus.Registry
	issues       *prometheus.GaugeVec
	checkIssues  *prometheus.GaugeVec
	scanned      *prometheus.GaugeVec
	stepDuration *prometheus.GaugeVec
	changes      *prometheus.GaugeVec
}

// NewMetrics creates metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.issues = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odoocheck_issues",
		Help: "Audit issues by severity",
	}, []string{"module", "severity"})
	m.checkIssues = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odoocheck_check_issues",
		Help: "Audit issues by check",
	}, []string{"module", "check"})
	m.scanned = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odoocheck_scanned",
		Help: "Scanned files, models and fields",
	}, []string{"module", "kind"})
	m.stepDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odoocheck_step_duration_seconds",
		Help: "Pipeline step duration",
	}, []string{"step", "status"})
	m.changes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odoocheck_changes",
		Help: "Fixer changes by kind",
	}, []string{"kind"})
	m.registry.MustRegister(m.issues, m.checkIssues, m.scanned, m.stepDuration, m.changes)
	return m
}

// ObserveReport records audit counters
func (m *Metrics) ObserveReport(report *auditor.Report) {
	summary := report.Summary
	m.issues.WithLabelValues(report.Module, string(auditor.High)).Set(float64(summary.High))
	m.issues.WithLabelValues(report.Module, string(auditor.Medium)).Set(float64(summary.Medium))
	m.issues.WithLabelValues(report.Module, string(auditor.Low)).Set(float64(summary.Low))
	byCheck := map[auditor.Check]int{}
	for _, issue := range report.Issues {
		byCheck[issue.Check]++
	}
	for check, count := range byCheck {
		m.checkIssues.WithLabelValues(report.Module, string(check)).Set(float64(count))
	}
	m.scanned.WithLabelValues(report.Module, "files").Set(float64(summary.FilesScanned))
	m.scanned.WithLabelValues(report.Module, "models").Set(float64(summary.ModelsScanned))
	m.scanned.WithLabelValues(report.Module, "fields").Set(float64(summary.FieldsScanned))
}

// ObserveStep records a pipeline step duration
func (m *Metrics) ObserveStep(step, status string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step, status).Set(duration.Seconds())
}

// ObserveChanges replaces the change counters with counts keyed by change kind
func (m *Metrics) ObserveChanges(counts map[string]int) {
	m.changes.Reset()
	for kind, count := range counts {
		m.changes.WithLabelValues(kind).Set(float64(count))
	}
}

// WriteTextfile atomically writes metrics in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", path, err)
	}
	return nil
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
