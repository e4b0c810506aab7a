package auditor

// Severity ranks an issue, levels are fixed constants without measured impact behind them
type Severity string

const (
	High   Severity = "high"
	Medium Severity = "medium"
	Low    Severity = "low"
)

// Category groups issues by the error taxonomy
type Category string

const (
	// FileError marks a file that could not be read or parsed, it was skipped
	FileError Category = "file_error"
	// ValidationIssue marks an informational finding, it never blocks
	ValidationIssue Category = "validation_issue"
)

// Check names the audit pass producing an issue
type Check string

const (
	CheckSyntax       Check = "syntax"
	CheckAPIDepends   Check = "api_depends"
	CheckMappedCalls  Check = "mapped_calls"
	CheckRelationship Check = "relationship_fields"
	CheckViewFields   Check = "view_fields"
	CheckAccessRules  Check = "access_rules"
)

// Rule identifies a specific finding
type Rule string

const (
	RuleUnparseable          Rule = "unparseable_file"
	RuleDependsFieldMissing  Rule = "depends_field_missing"
	RuleDependsRelatedMissed Rule = "depends_related_field_missing"
	RuleMappedFieldMissing   Rule = "mapped_field_missing"
	RuleMappedFieldUnknown   Rule = "mapped_field_unknown"
	RuleUnknownComodel       Rule = "unknown_comodel"
	RuleMissingComodel       Rule = "relational_without_comodel"
	RuleMissingInverse       Rule = "inverse_field_missing"
	RuleMissingInverseName   Rule = "inverse_name_missing"
	RuleViewFieldMissing     Rule = "view_field_missing"
	RuleViewUnknownModel     Rule = "view_unknown_model"
	RuleAccessUnknownModel   Rule = "access_unknown_model"
	RuleAccessMissing        Rule = "access_rule_missing"
)

var severities = map[Rule]Severity{
	RuleUnparseable:          High,
	RuleDependsFieldMissing:  High,
	RuleDependsRelatedMissed: Medium,
	RuleMappedFieldMissing:   Medium,
	RuleMappedFieldUnknown:   Low,
	RuleUnknownComodel:       High,
	RuleMissingComodel:       High,
	RuleMissingInverse:       Medium,
	RuleMissingInverseName:   Medium,
	RuleViewFieldMissing:     Medium,
	RuleViewUnknownModel:     Low,
	RuleAccessUnknownModel:   Medium,
	RuleAccessMissing:        Low,
}

// SeverityOf returns the fixed severity of a rule
func SeverityOf(rule Rule) Severity {
	if severity, ok := severities[rule]; ok {
		return severity
	}
	return Low
}

// Issue represents a single audit finding
type Issue struct {
	Check      Check    `json:"check" yaml:"check"`
	Rule       Rule     `json:"rule" yaml:"rule"`
	Category   Category `json:"category" yaml:"category"`
	Severity   Severity `json:"severity" yaml:"severity"`
	File       string   `json:"file" yaml:"file"`
	Line       int      `json:"line,omitempty" yaml:"line,omitempty"`
	Model      string   `json:"model,omitempty" yaml:"model,omitempty"`
	Expression string   `json:"expression,omitempty" yaml:"expression,omitempty"`
	// MissingField is the field the fixer may declare on Model to resolve the issue
	MissingField string `json:"missingField,omitempty" yaml:"missingField,omitempty"`
	Message      string `json:"message" yaml:"message"`
}

// Resolution describes how a relational comodel was resolved
type Resolution string

const (
	ResolvedScanned  Resolution = "scanned"
	ResolvedExternal Resolution = "external"
	Unresolved       Resolution = "unknown"
)

// RelationshipRef records a relational field target
type RelationshipRef struct {
	Model      string     `json:"model" yaml:"model"`
	Field      string     `json:"field" yaml:"field"`
	Type       string     `json:"type" yaml:"type"`
	Comodel    string     `json:"comodel" yaml:"comodel"`
	Inverse    string     `json:"inverse,omitempty" yaml:"inverse,omitempty"`
	File       string     `json:"file" yaml:"file"`
	Line       int        `json:"line" yaml:"line"`
	Resolution Resolution `json:"resolution" yaml:"resolution"`
}

func newIssue(check Check, rule Rule, file string, line int, message string) *Issue {
	category := ValidationIssue
	if check == CheckSyntax {
		category = FileError
	}
	return &Issue{
		Check:    check,
		Rule:     rule,
		Category: category,
		Severity: SeverityOf(rule),
		File:     file,
		Line:     line,
		Message:  message,
	}
}
