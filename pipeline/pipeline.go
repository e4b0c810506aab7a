package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/backup"
	"github.com/viant/odoocheck/config"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/inspector/repository"
	"github.com/viant/odoocheck/logging"
	"github.com/viant/odoocheck/report"
	"go.uber.org/zap"
)

// Pipeline runs steps over an addon
type Pipeline struct {
	config   *config.Config
	logger   *logging.Logger
	scanner  *inspector.Scanner
	auditor  *auditor.Auditor
	fixer    *fixer.Fixer
	backups  *backup.Service
	detector *repository.Detector
	metrics  *report.Metrics
	progress ProgressCallback
}

// Option configures a Pipeline
type Option func(p *Pipeline)

// WithBackupService overrides the backup service
func WithBackupService(service *backup.Service) Option {
	return func(p *Pipeline) {
		p.backups = service
	}
}

// WithMetrics overrides the metrics collector
func WithMetrics(metrics *report.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// WithProgress sets the step transition callback
func WithProgress(callback ProgressCallback) Option {
	return func(p *Pipeline) {
		p.progress = callback
	}
}

// New creates a pipeline, a nil config uses defaults
func New(cfg *config.Config, logger *logging.Logger, options ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	fixerConfig := cfg.Fixer
	auditConfig := cfg.Audit
	result := &Pipeline{
		config:   cfg,
		logger:   logger.Named("pipeline"),
		scanner:  inspector.NewScanner(cfg.Graph()),
		auditor:  auditor.New(&auditConfig, logger),
		fixer:    fixer.New(&fixerConfig, logger),
		backups:  backup.New(logger),
		detector: repository.New(),
		metrics:  report.NewMetrics(),
	}
	for _, option := range options {
		option(result)
	}
	return result
}

// Metrics returns the run metrics collector
func (p *Pipeline) Metrics() *report.Metrics {
	return p.metrics
}

// Run executes the default steps over the addon rooted at root
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	return p.RunSteps(ctx, root, p.Steps())
}

// RunSteps executes steps in order. The first failing step aborts the run, its error is
// wrapped with ErrStepFailed and every later step is marked skipped
func (p *Pipeline) RunSteps(ctx context.Context, root string, steps []Step) (*Result, error) {
	rootPath, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	result := &Result{
		RunID:     runID,
		Addon:     filepath.Base(rootPath),
		Root:      rootPath,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	for _, step := range steps {
		result.Steps = append(result.Steps, &StepResult{Name: step.Name, Status: StatusPending})
	}
	p.logger.Info(ctx, "pipeline started", zap.String("root", rootPath), zap.Int("steps", len(steps)))

	state := &State{RunID: runID, Root: rootPath, Config: p.config}
	if err = p.checkWorktree(ctx, rootPath); err != nil {
		skip(result.Steps)
		p.finish(ctx, result, state, StatusFailed)
		return result, err
	}

	for i, step := range steps {
		stepResult := result.Steps[i]
		if err = ctx.Err(); err != nil {
			skip(result.Steps[i:])
			p.finish(ctx, result, state, StatusFailed)
			return result, err
		}
		stepCtx := logging.WithStep(ctx, step.Name)
		p.reportProgress(Progress{Step: step.Name, Status: StatusRunning, Index: i, Total: len(steps)})
		stepResult.Status = StatusRunning
		stepResult.StartedAt = time.Now()
		state.notes = nil

		err = step.Run(stepCtx, state)

		stepResult.CompletedAt = time.Now()
		elapsed := stepResult.CompletedAt.Sub(stepResult.StartedAt)
		stepResult.Seconds = elapsed.Seconds()
		stepResult.Notes = state.notes
		if err != nil {
			stepResult.Status = StatusFailed
			stepResult.Error = err.Error()
			p.metrics.ObserveStep(step.Name, string(StatusFailed), elapsed)
			p.logger.Error(stepCtx, "step failed", zap.Duration("elapsed", elapsed), zap.Error(err))
			p.reportProgress(Progress{Step: step.Name, Status: StatusFailed, Index: i, Total: len(steps)})
			skip(result.Steps[i+1:])
			p.finish(ctx, result, state, StatusFailed)
			return result, fmt.Errorf("%w: %s: %w", ErrStepFailed, step.Name, err)
		}
		stepResult.Status = StatusCompleted
		p.metrics.ObserveStep(step.Name, string(StatusCompleted), elapsed)
		p.logger.Info(stepCtx, "step completed", zap.Duration("elapsed", elapsed), zap.Strings("notes", state.notes))
		p.reportProgress(Progress{Step: step.Name, Status: StatusCompleted, Index: i, Total: len(steps)})
	}
	p.finish(ctx, result, state, StatusCompleted)
	return result, nil
}

// checkWorktree refuses a dirty git worktree unless allowed
func (p *Pipeline) checkWorktree(ctx context.Context, root string) error {
	repo := p.detector.DetectRepository(root)
	if repo == nil || repo.Clean {
		return nil
	}
	if p.config.Pipeline.AllowDirty {
		p.logger.Warn(ctx, "running on a dirty git worktree", zap.String("repository", repo.Root))
		return nil
	}
	return fmt.Errorf("%w: %s, commit or stash them, or set pipeline.allow_dirty", ErrDirtyWorktree, repo.Root)
}

// finish copies state into the result and writes the metrics textfile when configured
func (p *Pipeline) finish(ctx context.Context, result *Result, state *State, status Status) {
	result.Status = status
	result.CompletedAt = time.Now()
	result.Changes = state.Changes
	if state.Backup != nil {
		result.Backup = state.Backup.Path
	}
	if state.Initial != nil {
		summary := state.Initial.Summary
		result.Initial = &summary
	}
	if state.Final != nil {
		summary := state.Final.Summary
		result.Final = &summary
		p.metrics.ObserveReport(state.Final)
	}
	counts := map[string]int{}
	for _, change := range state.Changes {
		counts[string(change.Kind)]++
	}
	p.metrics.ObserveChanges(counts)
	if path := p.config.Report.MetricsFile; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			p.logger.Warn(ctx, "failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}
	p.logger.Info(ctx, "pipeline finished",
		zap.String("status", string(status)),
		zap.Int("changes", len(state.Changes)),
		zap.Duration("elapsed", result.CompletedAt.Sub(result.StartedAt)))
}

func (p *Pipeline) reportProgress(progress Progress) {
	if p.progress != nil {
		p.progress(progress)
	}
}

func skip(steps []*StepResult) {
	for _, step := range steps {
		step.Status = StatusSkipped
	}
}
