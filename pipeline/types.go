// Package pipeline runs backup, audit and fix steps over an addon in a fixed order.
// The first failing step aborts the run and the remaining steps are skipped, there is no resume.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/backup"
	"github.com/viant/odoocheck/config"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/inspector/graph"
)

var (
	// ErrStepFailed wraps the error of the step that aborted a run
	ErrStepFailed = errors.New("pipeline step failed")
	// ErrDirtyWorktree is returned when the addon git worktree has uncommitted changes
	ErrDirtyWorktree = errors.New("git worktree has uncommitted changes")
	// ErrInvalidSyntax is returned by validate_syntax when a file does not parse
	ErrInvalidSyntax = errors.New("addon files do not parse")
)

// Step names in execution order
const (
	StepBackup              = "backup"
	StepInitialValidation   = "initial_validation"
	StepCleanArtifacts      = "clean_artifacts"
	StepCreateMissingModels = "create_missing_models"
	StepFixFields           = "fix_fields"
	StepAddSecurityRules    = "add_security_rules"
	StepValidateSyntax      = "validate_syntax"
	StepFinalValidation     = "final_validation"
	StepSummary             = "summary"
)

// Status represents the outcome of a step or a run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Step is a named unit of work sharing the run state
type Step struct {
	Name string
	Run  func(ctx context.Context, state *State) error
}

// StepResult captures the outcome of a step
type StepResult struct {
	Name        string    `json:"name" yaml:"name"`
	Status      Status    `json:"status" yaml:"status"`
	StartedAt   time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	Seconds     float64   `json:"seconds" yaml:"seconds"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	Notes       []string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// State is shared by the steps of a run
type State struct {
	RunID  string
	Root   string
	Config *config.Config
	// Module is the latest scan of the addon
	Module *graph.Module
	// Report is the audit of Module
	Report  *auditor.Report
	Initial *auditor.Report
	Final   *auditor.Report
	Backup  *backup.Backup
	Changes []*fixer.Change
	notes   []string
}

// Note records a message on the running step
func (s *State) Note(format string, args ...interface{}) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

// AddChanges records computed changes, nil entries are ignored
func (s *State) AddChanges(changes ...*fixer.Change) int {
	count := 0
	for _, change := range changes {
		if change == nil {
			continue
		}
		s.Changes = append(s.Changes, change)
		for _, note := range change.Notes {
			s.Note("%s: %s", change.Path, note)
		}
		count++
	}
	return count
}

// Result represents a pipeline run
type Result struct {
	RunID       string           `json:"runId" yaml:"runId"`
	Addon       string           `json:"addon" yaml:"addon"`
	Root        string           `json:"root" yaml:"root"`
	Status      Status           `json:"status" yaml:"status"`
	StartedAt   time.Time        `json:"startedAt" yaml:"startedAt"`
	CompletedAt time.Time        `json:"completedAt" yaml:"completedAt"`
	Steps       []*StepResult    `json:"steps" yaml:"steps"`
	Backup      string           `json:"backup,omitempty" yaml:"backup,omitempty"`
	Initial     *auditor.Summary `json:"initial,omitempty" yaml:"initial,omitempty"`
	Final       *auditor.Summary `json:"final,omitempty" yaml:"final,omitempty"`
	Changes     []*fixer.Change  `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Step returns the result of the named step
func (r *Result) Step(name string) *StepResult {
	for _, step := range r.Steps {
		if step.Name == name {
			return step
		}
	}
	return nil
}

// Progress reports a step transition
type Progress struct {
	Step   string
	Status Status
	Index  int
	Total  int
}

// ProgressCallback receives step transitions
type ProgressCallback func(progress Progress)
