package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/inspector/graph"
	"go.uber.org/zap"
)

// Steps returns the default steps in execution order
func (p *Pipeline) Steps() []Step {
	return []Step{
		{Name: StepBackup, Run: p.backup},
		{Name: StepInitialValidation, Run: p.initialValidation},
		{Name: StepCleanArtifacts, Run: p.cleanArtifacts},
		{Name: StepCreateMissingModels, Run: p.createMissingModels},
		{Name: StepFixFields, Run: p.fixFields},
		{Name: StepAddSecurityRules, Run: p.addSecurityRules},
		{Name: StepValidateSyntax, Run: p.validateSyntax},
		{Name: StepFinalValidation, Run: p.finalValidation},
		{Name: StepSummary, Run: p.summary},
	}
}

// refresh rescans and audits the addon
func (p *Pipeline) refresh(ctx context.Context, state *State) error {
	module, err := p.scanner.Scan(ctx, state.Root)
	if err != nil {
		return err
	}
	state.Module = module
	state.Report = p.auditor.Audit(ctx, module)
	return nil
}

// refreshIfChanged rescans only when a change was written
func (p *Pipeline) refreshIfChanged(ctx context.Context, state *State, changes []*fixer.Change) error {
	for _, change := range changes {
		if change != nil && change.Applied {
			return p.refresh(ctx, state)
		}
	}
	return nil
}

func (p *Pipeline) backup(ctx context.Context, state *State) error {
	created, err := p.backups.CreateUniqueBackup(ctx, state.Root, p.config.Backup.Root)
	if err != nil {
		return err
	}
	state.Backup = created
	state.Note("backup created at %s", created.Path)
	return nil
}

func (p *Pipeline) initialValidation(ctx context.Context, state *State) error {
	if err := p.refresh(ctx, state); err != nil {
		return err
	}
	state.Initial = state.Report
	noteSummary(state, state.Report)
	return nil
}

func (p *Pipeline) cleanArtifacts(ctx context.Context, state *State) error {
	changes, err := p.fixer.CleanModule(ctx, state.Module)
	state.AddChanges(changes...)
	if err != nil {
		return err
	}
	return p.refreshIfChanged(ctx, state, changes)
}

// createMissingModels creates unresolved comodels under the configured prefix
func (p *Pipeline) createMissingModels(ctx context.Context, state *State) error {
	prefix := p.config.Fixer.ModelPrefix
	if prefix == "" {
		state.Note("fixer.model_prefix is not set, no model created")
		return nil
	}
	missing := p.missingModels(state.Report, prefix)
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)

	var created []*fixer.Change
	for _, name := range names {
		changes, err := p.fixer.CreateModel(ctx, state.Module, name, missing[name])
		switch {
		case errors.Is(err, fixer.ErrFileExists), errors.Is(err, fixer.ErrInvalidFieldName):
			state.Note("model %s not created: %v", name, err)
			continue
		case err != nil:
			state.AddChanges(changes...)
			return err
		}
		state.AddChanges(changes...)
		created = append(created, changes...)
		state.Note("created model %s", name)
	}
	return p.refreshIfChanged(ctx, state, created)
}

// missingModels returns unresolved comodels under prefix with the inverse fields their
// One2many owners expect
func (p *Pipeline) missingModels(report *auditor.Report, prefix string) map[string][]*fixer.Definition {
	result := map[string][]*fixer.Definition{}
	declared := map[string]bool{}
	for _, ref := range report.Relationships {
		if ref.Resolution != auditor.Unresolved || !strings.HasPrefix(ref.Comodel, prefix+".") {
			continue
		}
		if _, ok := result[ref.Comodel]; !ok {
			result[ref.Comodel] = nil
		}
		if ref.Type != string(graph.One2many) || !fixer.IsIdentifier(ref.Inverse) {
			continue
		}
		key := ref.Comodel + "." + ref.Inverse
		if declared[key] {
			continue
		}
		declared[key] = true
		result[ref.Comodel] = append(result[ref.Comodel], p.fixer.Inferrer().Inverse(ref.Inverse, ref.Model))
	}
	return result
}

// fixFields declares fields missing from depends, views and mapped calls on self,
// then the Many2one side of One2many fields lacking their inverse
func (p *Pipeline) fixFields(ctx context.Context, state *State) error {
	missing := state.Report.MissingFields(state.Module, auditor.CheckAPIDepends, auditor.CheckViewFields, auditor.CheckMappedCalls)
	changes, err := p.fixer.AddMissingFields(ctx, state.Module, missing)
	state.AddChanges(changes...)
	if err != nil {
		return err
	}
	for _, change := range changes {
		state.Note("%s: added %s", change.Model, strings.Join(change.Fields, ", "))
	}

	inverses := missingInverses(state.Report, p.fixer.Inferrer())
	models := make([]string, 0, len(inverses))
	for model := range inverses {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		change, err := p.fixer.AddDefinitions(ctx, state.Module, model, inverses[model])
		switch {
		case errors.Is(err, fixer.ErrModelNotFound), errors.Is(err, fixer.ErrMalformedSource):
			state.Note("inverse fields on %s not added: %v", model, err)
			continue
		case err != nil:
			return err
		}
		if state.AddChanges(change) > 0 {
			changes = append(changes, change)
			state.Note("%s: added inverse %s", model, strings.Join(change.Fields, ", "))
		}
	}
	return p.refreshIfChanged(ctx, state, changes)
}

// missingInverses maps comodels to the Many2one fields their One2many owners expect
func missingInverses(report *auditor.Report, inferrer *fixer.Inferrer) map[string][]*fixer.Definition {
	wanted := map[string]bool{}
	for _, issue := range report.Filter(auditor.CheckRelationship) {
		if issue.Rule == auditor.RuleMissingInverse && issue.MissingField != "" {
			wanted[issue.Model+"."+issue.MissingField] = true
		}
	}
	result := map[string][]*fixer.Definition{}
	for _, ref := range report.Relationships {
		key := ref.Comodel + "." + ref.Inverse
		if ref.Type != string(graph.One2many) || !wanted[key] || !fixer.IsIdentifier(ref.Inverse) {
			continue
		}
		delete(wanted, key)
		result[ref.Comodel] = append(result[ref.Comodel], inferrer.Inverse(ref.Inverse, ref.Model))
	}
	return result
}

func (p *Pipeline) addSecurityRules(ctx context.Context, state *State) error {
	change, err := p.fixer.AddAccessRules(ctx, state.Module)
	if err != nil {
		return err
	}
	if state.AddChanges(change) == 0 {
		return nil
	}
	state.Note("added access rules %s", strings.Join(change.Rules, ", "))
	return p.refreshIfChanged(ctx, state, []*fixer.Change{change})
}

// validateSyntax fails when any python, xml or csv file of the addon does not parse
func (p *Pipeline) validateSyntax(ctx context.Context, state *State) error {
	if err := p.refresh(ctx, state); err != nil {
		return err
	}
	module := state.Module
	var problems []string
	for _, file := range module.Files {
		switch {
		case file.Err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", module.RelativePath(file.Path), file.Err))
		case len(file.SyntaxErrors) > 0:
			first := file.SyntaxErrors[0]
			problems = append(problems, fmt.Sprintf("%s:%d near %q", module.RelativePath(file.Path), first.Line, first.Snippet))
		}
	}
	for _, fileError := range module.Errors {
		problems = append(problems, fmt.Sprintf("%s: %s", module.RelativePath(fileError.Path), fileError.Message))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSyntax, strings.Join(problems, "; "))
	}
	state.Note("%d python files parse", len(module.Files))
	return nil
}

func (p *Pipeline) finalValidation(ctx context.Context, state *State) error {
	if err := p.refresh(ctx, state); err != nil {
		return err
	}
	state.Final = state.Report
	noteSummary(state, state.Report)
	return nil
}

func (p *Pipeline) summary(ctx context.Context, state *State) error {
	if state.Initial == nil || state.Final == nil {
		return errors.New("validation reports are missing")
	}
	before, after := state.Initial.Summary, state.Final.Summary
	applied := 0
	for _, change := range state.Changes {
		if change.Applied {
			applied++
		}
	}
	state.Note("issues %d -> %d, high %d -> %d", before.TotalIssues, after.TotalIssues, before.High, after.High)
	state.Note("%d changes computed, %d written", len(state.Changes), applied)
	p.logger.Info(ctx, "run summary",
		zap.Int("issues_before", before.TotalIssues),
		zap.Int("issues_after", after.TotalIssues),
		zap.Int("high_before", before.High),
		zap.Int("high_after", after.High),
		zap.Int("changes", len(state.Changes)),
		zap.Int("written", applied))
	return nil
}

func noteSummary(state *State, report *auditor.Report) {
	summary := report.Summary
	state.Note("%d issues: %d high, %d medium, %d low", summary.TotalIssues, summary.High, summary.Medium, summary.Low)
}
