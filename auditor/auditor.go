package auditor

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/security"
	"github.com/viant/odoocheck/logging"
	"go.uber.org/zap"
)

// DefaultMaxDependsDepth is the number of dotted segments validated per depends path
const DefaultMaxDependsDepth = 2

// Config represents auditor settings
type Config struct {
	MaxDependsDepth int      `koanf:"max_depends_depth"`
	ExternalModels  []string `koanf:"external_models"`
}

// Auditor cross-checks field references of a scanned module
type Auditor struct {
	config   *Config
	registry *registry
	logger   *logging.Logger
}

// New creates an auditor, nil config uses defaults and nil logger discards output
func New(config *Config, logger *logging.Logger) *Auditor {
	if config == nil {
		config = &Config{}
	}
	if config.MaxDependsDepth <= 0 {
		config.MaxDependsDepth = DefaultMaxDependsDepth
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Auditor{config: config, registry: newRegistry(config.ExternalModels), logger: logger.Named("auditor")}
}

// Audit runs every check over the module in a single pass
func (a *Auditor) Audit(ctx context.Context, module *graph.Module) *Report {
	report := NewReport(module)
	checks := []struct {
		check Check
		run   func(*graph.Module) []*Issue
	}{
		{CheckSyntax, a.CheckSyntax},
		{CheckAPIDepends, a.CheckAPIDepends},
		{CheckMappedCalls, a.CheckMappedCalls},
		{CheckRelationship, a.CheckRelationshipFields},
		{CheckViewFields, a.CheckViewFields},
		{CheckAccessRules, a.CheckAccessRules},
	}
	for _, item := range checks {
		issues := item.run(module)
		a.logger.Debug(ctx, "check completed", zap.String("check", string(item.check)), zap.Int("issues", len(issues)))
		report.Add(issues...)
	}
	report.Relationships = a.Relationships(module)
	report.Finalize()
	a.logger.Info(ctx, "audit completed",
		zap.String("module", module.Name),
		zap.Int("issues", report.Summary.TotalIssues),
		zap.Int("high", report.Summary.High))
	return report
}

// CheckSyntax reports files that could not be read or parsed
func (a *Auditor) CheckSyntax(module *graph.Module) []*Issue {
	var issues []*Issue
	for _, file := range module.Files {
		path := module.RelativePath(file.Path)
		switch {
		case file.Err != nil:
			issues = append(issues, newIssue(CheckSyntax, RuleUnparseable, path, 0, file.Err.Error()))
		case len(file.SyntaxErrors) > 0:
			first := file.SyntaxErrors[0]
			message := fmt.Sprintf("syntax error at line %d column %d near %q", first.Line, first.Column, first.Snippet)
			if count := len(file.SyntaxErrors); count > 1 {
				message += fmt.Sprintf(" (%d errors)", count)
			}
			issues = append(issues, newIssue(CheckSyntax, RuleUnparseable, path, first.Line, message))
		}
	}
	for _, fileError := range module.Errors {
		issues = append(issues, newIssue(CheckSyntax, RuleUnparseable, module.RelativePath(fileError.Path), fileError.Line, fileError.Message))
	}
	return issues
}

// CheckAPIDepends validates every @api.depends path against the owning model and its comodels
func (a *Auditor) CheckAPIDepends(module *graph.Module) []*Issue {
	var issues []*Issue
	for _, file := range module.Files {
		for _, declared := range file.Models {
			if declared.Class == nil {
				continue
			}
			owner := module.LookupModel(declared.Name)
			if owner == nil {
				continue
			}
			for _, method := range declared.Class.Methods {
				for _, literal := range method.Depends {
					if issue := a.checkPath(module, owner, literal.Value); issue != nil {
						issue.File = module.RelativePath(file.Path)
						issue.Line = literal.Line
						issue.Message = fmt.Sprintf("%s in @api.depends of %s.%s", issue.Message, declared.Name, method.Name)
						issues = append(issues, issue)
					}
				}
			}
		}
	}
	return issues
}

// checkPath walks a dotted field path, returning an issue for the first unresolved segment
func (a *Auditor) checkPath(module *graph.Module, owner *graph.Model, path string) *Issue {
	segments := strings.Split(path, ".")
	if len(segments) > a.config.MaxDependsDepth {
		segments = segments[:a.config.MaxDependsDepth]
	}
	current := owner
	for i, segment := range segments {
		if segment == "" {
			return nil
		}
		if !a.hasField(current, segment) {
			rule := RuleDependsFieldMissing
			if i > 0 {
				rule = RuleDependsRelatedMissed
			}
			issue := newIssue(CheckAPIDepends, rule, "", 0, fmt.Sprintf("field %q not found in model %s", segment, current.Name))
			issue.Model = current.Name
			issue.Expression = path
			issue.MissingField = segment
			return issue
		}
		field := current.LookupField(segment)
		if field == nil || !field.Type.IsRelational() {
			return nil
		}
		next := module.LookupModel(field.Comodel)
		if next == nil {
			// external comodels are trusted, unknown ones are reported by the relationship check
			return nil
		}
		current = next
	}
	return nil
}

// CheckMappedCalls validates string literal .mapped() arguments, lambdas and expressions are skipped
func (a *Auditor) CheckMappedCalls(module *graph.Module) []*Issue {
	var issues []*Issue
	for _, file := range module.Files {
		for _, call := range file.MappedCalls {
			if call.IsLambda || call.IsDynamic || call.Argument == "" {
				continue
			}
			segment := strings.SplitN(call.Argument, ".", 2)[0]
			target, resolved := a.resolveReceiver(module, call)
			switch {
			case target != nil:
				if a.hasField(target, segment) {
					continue
				}
				issue := newIssue(CheckMappedCalls, RuleMappedFieldMissing, module.RelativePath(file.Path), call.Line,
					fmt.Sprintf("field %q not found in model %s for %s.mapped()", segment, target.Name, call.Receiver))
				issue.Model = target.Name
				issue.Expression = call.Argument
				issue.MissingField = segment
				issues = append(issues, issue)
			case resolved:
				// receiver resolves to an external model
			default:
				if a.isKnownField(module, segment) {
					continue
				}
				issue := newIssue(CheckMappedCalls, RuleMappedFieldUnknown, module.RelativePath(file.Path), call.Line,
					fmt.Sprintf("field %q not found in any scanned model for %s.mapped()", segment, call.Receiver))
				issue.Expression = call.Argument
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

// resolveReceiver maps self.<relational> chains, loop targets included, to a scanned model.
// resolved is true when the receiver points at an external model
func (a *Auditor) resolveReceiver(module *graph.Module, call *graph.MappedCall) (target *graph.Model, resolved bool) {
	if call.Model == "" || call.Source == "" {
		return nil, false
	}
	parts := strings.Split(call.Source, ".")
	if parts[0] != "self" {
		return nil, false
	}
	current := module.LookupModel(call.Model)
	if current == nil {
		return nil, false
	}
	for _, part := range parts[1:] {
		field := current.LookupField(part)
		if field == nil || !field.Type.IsRelational() {
			return nil, false
		}
		next := module.LookupModel(field.Comodel)
		if next == nil {
			return nil, a.registry.IsExternal(field.Comodel)
		}
		current = next
	}
	return current, true
}

// CheckRelationshipFields validates comodels and One2many inverse fields
func (a *Auditor) CheckRelationshipFields(module *graph.Module) []*Issue {
	var issues []*Issue
	for _, file := range module.Files {
		path := module.RelativePath(file.Path)
		for _, model := range file.Models {
			for _, field := range model.Fields {
				if !field.Type.IsRelational() || field.Related != "" {
					continue
				}
				line := fieldLine(field)
				if field.Comodel == "" && model.IsExtension() {
					// redeclares attributes of an inherited field
					continue
				}
				if field.Comodel == "" {
					issue := newIssue(CheckRelationship, RuleMissingComodel, path, line,
						fmt.Sprintf("%s field %s.%s has no comodel", field.Type, model.Name, field.Name))
					issue.Model = model.Name
					issue.Expression = field.Name
					issues = append(issues, issue)
					continue
				}
				comodel := module.LookupModel(field.Comodel)
				if comodel == nil {
					if a.registry.IsExternal(field.Comodel) {
						continue
					}
					issue := newIssue(CheckRelationship, RuleUnknownComodel, path, line,
						fmt.Sprintf("unknown comodel %s referenced by %s.%s", field.Comodel, model.Name, field.Name))
					issue.Model = model.Name
					issue.Expression = field.Comodel
					issues = append(issues, issue)
					continue
				}
				if field.Type != graph.One2many {
					continue
				}
				if field.InverseField == "" {
					issue := newIssue(CheckRelationship, RuleMissingInverseName, path, line,
						fmt.Sprintf("One2many field %s.%s does not name its inverse field", model.Name, field.Name))
					issue.Model = model.Name
					issue.Expression = field.Name
					issues = append(issues, issue)
					continue
				}
				if !a.hasField(comodel, field.InverseField) {
					issue := newIssue(CheckRelationship, RuleMissingInverse, path, line,
						fmt.Sprintf("inverse field %q of %s.%s not found in model %s", field.InverseField, model.Name, field.Name, comodel.Name))
					issue.Model = comodel.Name
					issue.Expression = field.Name
					issue.MissingField = field.InverseField
					issues = append(issues, issue)
				}
			}
		}
	}
	return issues
}

// Relationships lists every relational field target with its resolution
func (a *Auditor) Relationships(module *graph.Module) []*RelationshipRef {
	var refs []*RelationshipRef
	for _, file := range module.Files {
		for _, model := range file.Models {
			for _, field := range model.Fields {
				if !field.Type.IsRelational() || field.Comodel == "" {
					continue
				}
				ref := &RelationshipRef{
					Model:      model.Name,
					Field:      field.Name,
					Type:       string(field.Type),
					Comodel:    field.Comodel,
					Inverse:    field.InverseField,
					File:       module.RelativePath(file.Path),
					Line:       fieldLine(field),
					Resolution: Unresolved,
				}
				if module.LookupModel(field.Comodel) != nil {
					ref.Resolution = ResolvedScanned
				} else if a.registry.IsExternal(field.Comodel) {
					ref.Resolution = ResolvedExternal
				}
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// CheckViewFields reports view field references missing on the view model
func (a *Auditor) CheckViewFields(module *graph.Module) []*Issue {
	var issues []*Issue
	for _, view := range module.Views {
		if view.Model == "" {
			continue
		}
		path := module.RelativePath(view.File)
		model := module.LookupModel(view.Model)
		if model == nil {
			if a.registry.IsExternal(view.Model) {
				continue
			}
			issue := newIssue(CheckViewFields, RuleViewUnknownModel, path, view.Line,
				fmt.Sprintf("view %s targets unknown model %s", view.ID, view.Model))
			issue.Model = view.Model
			issues = append(issues, issue)
			continue
		}
		for _, field := range view.Fields {
			if a.hasField(model, field.Name) {
				continue
			}
			issue := newIssue(CheckViewFields, RuleViewFieldMissing, path, field.Line,
				fmt.Sprintf("field %q used in view %s not found in model %s", field.Name, view.ID, model.Name))
			issue.Model = model.Name
			issue.Expression = view.ID
			issue.MissingField = field.Name
			issues = append(issues, issue)
		}
	}
	return issues
}

// CheckAccessRules reports access rows for unknown models and concrete models without rows
func (a *Auditor) CheckAccessRules(module *graph.Module) []*Issue {
	var issues []*Issue
	covered := map[string]bool{}
	externalRefs := map[string]bool{}
	for _, name := range knownExternalModels {
		externalRefs[graph.ModelIDRef(name)] = true
	}
	for _, name := range a.config.ExternalModels {
		externalRefs[graph.ModelIDRef(name)] = true
	}
	for _, rule := range module.AccessRules {
		ref := security.ModelName(rule.ModelRef)
		if name, ok := module.ModelByRef(ref); ok {
			covered[name] = true
			continue
		}
		if externalRefs[ref] {
			continue
		}
		issue := newIssue(CheckAccessRules, RuleAccessUnknownModel, module.RelativePath(rule.File), rule.Line,
			fmt.Sprintf("access rule %s references unknown model %s", rule.ID, rule.ModelRef))
		issue.Expression = rule.ModelRef
		issues = append(issues, issue)
	}
	path := ""
	if module.AccessFile != "" {
		path = module.RelativePath(module.AccessFile)
	}
	for _, model := range module.Models() {
		if covered[model.Name] || model.Kind == graph.KindAbstract || model.IsExtension() {
			continue
		}
		issue := newIssue(CheckAccessRules, RuleAccessMissing, path, 0,
			fmt.Sprintf("model %s has no access rule", model.Name))
		if path == "" {
			issue.File = module.RelativePath(model.File)
		}
		issue.Model = model.Name
		issues = append(issues, issue)
	}
	return issues
}

// hasField reports whether name resolves on the model, directly, as a magic field or via a mixin.
// Models extending an external non mixin model accept any name
func (a *Auditor) hasField(model *graph.Model, name string) bool {
	if magicFields[name] || model.LookupField(name) != nil {
		return true
	}
	for _, parent := range model.Inherit {
		if fields, ok := a.registry.mixins[parent]; ok {
			if fields[name] {
				return true
			}
			continue
		}
		if a.registry.IsExternal(parent) {
			return true
		}
	}
	return false
}

// isKnownField reports whether any scanned model or known mixin declares the field
func (a *Auditor) isKnownField(module *graph.Module, name string) bool {
	if magicFields[name] {
		return true
	}
	for _, model := range module.Models() {
		if a.hasField(model, name) {
			return true
		}
	}
	for _, fields := range a.registry.mixins {
		if fields[name] {
			return true
		}
	}
	return false
}

func fieldLine(field *graph.Field) int {
	if field.Location == nil {
		return 0
	}
	return field.Location.Line
}
