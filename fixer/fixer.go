// Package fixer patches addon sources: missing fields, missing models, paste artifacts and access rules.
// Every edited python file is parsed again before it is written, nothing that fails to parse is stored.
package fixer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/viant/afs"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/python"
	"github.com/viant/odoocheck/logging"
	"go.uber.org/zap"
)

var (
	// ErrSyntaxAfterFix is returned when a patched file would not parse, the file is left untouched
	ErrSyntaxAfterFix = errors.New("syntax_error_after_fix")
	// ErrFileExists is returned instead of overwriting an existing file
	ErrFileExists = errors.New("file already exists")
	// ErrMalformedSource is returned for files that do not parse before patching
	ErrMalformedSource = errors.New("source does not parse")
	// ErrModelNotFound is returned when no scanned class declares the model
	ErrModelNotFound = errors.New("model not found")
)

// Config represents fixer settings
type Config struct {
	ModelPrefix  string `koanf:"model_prefix"`
	UserGroup    string `koanf:"user_group"`
	ManagerGroup string `koanf:"manager_group"`
	// DryRun computes changes without writing them
	DryRun bool `koanf:"dry_run"`
}

// DefaultConfig returns the fixer defaults
func DefaultConfig() *Config {
	return &Config{UserGroup: "base.group_user", ManagerGroup: "base.group_system"}
}

// Kind names a change type
type Kind string

const (
	KindAddFields      Kind = "add_fields"
	KindCreateModel    Kind = "create_model"
	KindRegisterImport Kind = "register_import"
	KindClean          Kind = "clean_artifacts"
	KindAccessRules    Kind = "add_access_rules"
)

// Change represents a computed file edit
type Change struct {
	Kind    Kind     `json:"kind" yaml:"kind"`
	Path    string   `json:"path" yaml:"path"`
	Model   string   `json:"model,omitempty" yaml:"model,omitempty"`
	Fields  []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Rules   []string `json:"rules,omitempty" yaml:"rules,omitempty"`
	Notes   []string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Applied bool     `json:"applied" yaml:"applied"`
	// Content is the new file content
	Content []byte `json:"-" yaml:"-"`
}

// Fixer applies structural edits to addon files
type Fixer struct {
	config   *Config
	inferrer *Inferrer
	python   *python.Inspector
	fs       afs.Service
	logger   *logging.Logger
}

// New creates a fixer
func New(config *Config, logger *logging.Logger) *Fixer {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.UserGroup == "" {
		config.UserGroup = defaults.UserGroup
	}
	if config.ManagerGroup == "" {
		config.ManagerGroup = defaults.ManagerGroup
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fixer{
		config:   config,
		inferrer: NewInferrer(config.ModelPrefix),
		python:   python.NewInspector(nil),
		fs:       afs.New(),
		logger:   logger.Named("fixer"),
	}
}

// Inferrer returns the field inferrer used by the fixer
func (f *Fixer) Inferrer() *Inferrer {
	return f.inferrer
}

// AddMissingFields declares missing fields per model, models are processed in name order.
// Models without a patchable class are logged and skipped
func (f *Fixer) AddMissingFields(ctx context.Context, module *graph.Module, missing map[string][]string) ([]*Change, error) {
	var names []string
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	var changes []*Change
	for _, name := range names {
		change, err := f.AddFields(ctx, module, name, missing[name])
		switch {
		case errors.Is(err, ErrModelNotFound), errors.Is(err, ErrMalformedSource):
			f.logger.Warn(ctx, "skipping model", zap.String("model", name), zap.Error(err))
			continue
		case err != nil:
			return changes, err
		}
		if change != nil {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

// AddFields declares the named fields on the class defining model, field types are inferred from names.
// Names already declared are skipped, nil change means there was nothing to add
func (f *Fixer) AddFields(ctx context.Context, module *graph.Module, model string, names []string) (*Change, error) {
	owner := module.LookupModel(model)
	if owner == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	var definitions []*Definition
	for _, name := range names {
		definition, err := f.inferrer.Infer(name, owner)
		if err != nil {
			f.logger.Warn(ctx, "skipping field", zap.String("model", model), zap.Error(err))
			continue
		}
		definitions = append(definitions, definition)
	}
	return f.AddDefinitions(ctx, module, model, definitions)
}

// AddDefinitions inserts field definitions into the class defining model, after its last field.
// Fields are grouped under Marker, definitions already declared on the model are skipped
func (f *Fixer) AddDefinitions(ctx context.Context, module *graph.Module, model string, definitions []*Definition) (*Change, error) {
	_, file := module.Definition(model)
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	src, err := f.fs.DownloadWithURL(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	parsed, err := f.python.InspectSource(src)
	if err != nil {
		return nil, err
	}
	if parsed.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSource, file.Path)
	}
	target := definingClass(parsed, model)
	if target == nil || target.Class == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrModelNotFound, model, file.Path)
	}
	merged := module.LookupModel(model)

	var pending []*Definition
	seen := map[string]bool{}
	for _, definition := range definitions {
		name := definition.Name
		if seen[name] || target.LookupField(name) != nil || (merged != nil && merged.LookupField(name) != nil) {
			continue
		}
		seen[name] = true
		pending = append(pending, definition)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	content, err := insertFields(src, target, pending)
	if err != nil {
		return nil, fmt.Errorf("failed to patch %s: %w", file.Path, err)
	}
	if content, err = ensureFieldsImport(ctx, content); err != nil {
		return nil, err
	}
	if err = f.validate(ctx, file.Path, content); err != nil {
		return nil, err
	}
	change := &Change{Kind: KindAddFields, Path: file.Path, Model: model, Content: content}
	for _, definition := range pending {
		change.Fields = append(change.Fields, definition.Name)
	}
	return change, f.apply(ctx, change)
}

// validate parses python content, ErrSyntaxAfterFix is returned when it does not parse
func (f *Fixer) validate(ctx context.Context, path string, content []byte) error {
	syntaxErrors, err := python.Validate(ctx, content)
	if err != nil {
		return err
	}
	if len(syntaxErrors) == 0 {
		return nil
	}
	first := syntaxErrors[0]
	f.logger.Error(ctx, "patched file does not parse, not written",
		zap.String("path", path), zap.Int("line", first.Line), zap.String("near", first.Snippet))
	return fmt.Errorf("%w: %s:%d near %q", ErrSyntaxAfterFix, path, first.Line, first.Snippet)
}

// apply writes the change unless running dry
func (f *Fixer) apply(ctx context.Context, change *Change) error {
	if f.config.DryRun {
		f.logger.Info(ctx, "dry run, change not written", zap.String("kind", string(change.Kind)), zap.String("path", change.Path))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(change.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", change.Path, err)
	}
	if err := f.fs.Upload(ctx, change.Path, 0o644, bytes.NewReader(change.Content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", change.Path, err)
	}
	change.Applied = true
	f.logger.Info(ctx, "file updated",
		zap.String("kind", string(change.Kind)),
		zap.String("path", change.Path),
		zap.Strings("fields", change.Fields))
	return nil
}

// definingClass returns the first non extension class of model, or the first extension
func definingClass(file *graph.File, model string) *graph.Model {
	var fallback *graph.Model
	for _, candidate := range file.Models {
		if candidate.Name != model {
			continue
		}
		if !candidate.IsExtension() {
			return candidate
		}
		if fallback == nil {
			fallback = candidate
		}
	}
	return fallback
}
