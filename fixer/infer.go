package fixer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/viant/odoocheck/inspector/graph"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidFieldName is returned for names that are not python identifiers
var ErrInvalidFieldName = errors.New("invalid field name")

// Definition represents an inferred field declaration
type Definition struct {
	Name    string          `json:"name" yaml:"name"`
	Type    graph.FieldType `json:"type" yaml:"type"`
	Comodel string          `json:"comodel,omitempty" yaml:"comodel,omitempty"`
	Label   string          `json:"label" yaml:"label"`
	// Args are rendered keyword arguments after string=
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Render returns the python assignment declaring the field
func (d *Definition) Render() string {
	var args []string
	if d.Comodel != "" {
		args = append(args, quote(d.Comodel))
	}
	args = append(args, "string="+quote(d.Label))
	args = append(args, d.Args...)
	return fmt.Sprintf("%s = fields.%s(%s)", d.Name, d.Type, strings.Join(args, ", "))
}

// comodels maps a name stem to a core model
var comodels = map[string]string{
	"partner":          "res.partner",
	"customer":         "res.partner",
	"vendor":           "res.partner",
	"supplier":         "res.partner",
	"contact":          "res.partner",
	"user":             "res.users",
	"responsible":      "res.users",
	"company":          "res.company",
	"currency":         "res.currency",
	"country":          "res.country",
	"state":            "res.country.state",
	"group":            "res.groups",
	"bank":             "res.bank",
	"employee":         "hr.employee",
	"department":       "hr.department",
	"product":          "product.product",
	"uom":              "uom.uom",
	"warehouse":        "stock.warehouse",
	"picking":          "stock.picking",
	"lot":              "stock.lot",
	"invoice":          "account.move",
	"move":             "account.move",
	"journal":          "account.journal",
	"payment":          "account.payment",
	"analytic_account": "account.analytic.account",
	"project":          "project.project",
	"task":             "project.task",
	"attachment":       "ir.attachment",
	"message":          "mail.message",
	"activity":         "mail.activity",
	"template":         "mail.template",
	"sequence":         "ir.sequence",
}

var (
	stateSelection    = "[('draft', 'Draft'), ('confirmed', 'Confirmed'), ('done', 'Done'), ('cancelled', 'Cancelled')]"
	prioritySelection = "[('0', 'Normal'), ('1', 'High'), ('2', 'Urgent')]"
	levelSelection    = "[('low', 'Low'), ('medium', 'Medium'), ('high', 'High')]"
	typeSelection     = "[('standard', 'Standard'), ('other', 'Other')]"
)

// pythonKeywords cannot be used as field names
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true, "async": true,
	"await": true, "break": true, "class": true, "continue": true, "def": true, "del": true, "elif": true,
	"else": true, "except": true, "finally": true, "for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true, "with": true, "yield": true,
}

// Inferrer guesses field declarations from field names
type Inferrer struct {
	// ModelPrefix namespaces guessed comodels (<prefix>.<stem>), the owning model prefix is used when empty
	ModelPrefix string
}

// NewInferrer creates an inferrer
func NewInferrer(modelPrefix string) *Inferrer {
	return &Inferrer{ModelPrefix: modelPrefix}
}

// relationalStem returns name without its _ids or _id suffix
func relationalStem(name string) (string, bool) {
	for _, suffix := range []string{"_ids", "_id"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix), true
		}
	}
	return "", false
}

// InferField infers a definition without model context
func InferField(name string) (*Definition, error) {
	return NewInferrer("").Infer(name, nil)
}

// Infer returns the definition for name, the first matching rule wins.
// model may be nil, it decides between Monetary and Float and provides the comodel prefix
func (i *Inferrer) Infer(name string, model *graph.Model) (*Definition, error) {
	if !IsIdentifier(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldName, name)
	}
	words := strings.Split(strings.ToLower(strings.Trim(name, "_")), "_")
	definition := &Definition{Name: name, Type: graph.Char}
	if stem, ok := relationalStem(name); ok && strings.Trim(stem, "_") == "" {
		return nil, fmt.Errorf("%w: %q has no comodel stem", ErrInvalidFieldName, name)
	}
	switch {
	case strings.HasSuffix(name, "_ids"):
		stem := strings.TrimSuffix(name, "_ids")
		definition.Type = graph.Many2many
		definition.Comodel = i.comodel(stem, model)
		definition.Label = i.label(pluralize(stem))
		return definition, nil
	case strings.HasSuffix(name, "_id"):
		stem := strings.TrimSuffix(name, "_id")
		definition.Type = graph.Many2one
		definition.Comodel = i.comodel(stem, model)
		definition.Label = i.label(stem)
		return definition, nil
	}
	definition.Label = i.label(name)
	switch {
	case words[0] == "is" || words[0] == "has" || name == "active":
		definition.Type = graph.Boolean
		if name == "active" {
			definition.Args = []string{"default=True"}
		}
	case hasWord(words, "count", "qty", "quantity"):
		definition.Type = graph.Integer
		definition.Args = []string{"default=0"}
	case hasWord(words, "amount", "price", "cost", "total", "fee"):
		if model != nil && model.LookupField("currency_id") != nil {
			definition.Type = graph.Monetary
			definition.Args = []string{"currency_field='currency_id'"}
		} else {
			definition.Type = graph.Float
			definition.Args = []string{"digits=(16, 2)"}
		}
	case hasWord(words, "weight", "percentage", "rate", "ratio", "volume"):
		definition.Type = graph.Float
	case hasWord(words, "datetime", "time", "timestamp"):
		definition.Type = graph.Datetime
	case hasWord(words, "date", "deadline"):
		definition.Type = graph.Date
	case hasWord(words, "state", "status"):
		definition.Type = graph.Selection
		definition.Args = []string{"selection=" + stateSelection, "default='draft'"}
	case hasWord(words, "priority"):
		definition.Type = graph.Selection
		definition.Args = []string{"selection=" + prioritySelection, "default='0'"}
	case words[len(words)-1] == "type":
		definition.Type = graph.Selection
		definition.Args = []string{"selection=" + typeSelection, "default='standard'"}
	case hasWord(words, "level"):
		definition.Type = graph.Selection
		definition.Args = []string{"selection=" + levelSelection, "default='medium'"}
	case hasWord(words, "notes", "note", "description", "comment", "comments", "reason", "instructions"):
		definition.Type = graph.Text
	case hasWord(words, "html", "body"):
		definition.Type = graph.Html
	case hasWord(words, "image", "photo"):
		definition.Type = graph.Image
	case hasWord(words, "file", "attachment", "signature"):
		definition.Type = graph.Binary
		definition.Args = []string{"attachment=True"}
	}
	return definition, nil
}

// Inverse returns the Many2one declaring the inverse side of a One2many pointing at comodel
func (i *Inferrer) Inverse(name, comodel string) *Definition {
	return &Definition{
		Name:    name,
		Type:    graph.Many2one,
		Comodel: comodel,
		Label:   i.label(strings.TrimSuffix(name, "_id")),
		Args:    []string{"ondelete='cascade'"},
	}
}

// comodel guesses the target model of a relational name stem
func (i *Inferrer) comodel(stem string, model *graph.Model) string {
	stem = strings.ToLower(strings.Trim(stem, "_"))
	if target, ok := comodels[stem]; ok {
		return target
	}
	words := strings.Split(stem, "_")
	if target, ok := comodels[words[len(words)-1]]; ok {
		return target
	}
	prefix := i.ModelPrefix
	if prefix == "" && model != nil {
		if idx := strings.IndexByte(model.Name, '.'); idx != -1 {
			prefix = model.Name[:idx]
		}
	}
	target := strings.Join(words, ".")
	if prefix == "" {
		return target
	}
	return prefix + "." + target
}

func (i *Inferrer) label(name string) string {
	words := strings.Fields(strings.ReplaceAll(strings.Trim(name, "_"), "_", " "))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// pluralize pluralizes the last word of a snake_case stem
func pluralize(stem string) string {
	words := strings.Split(stem, "_")
	words[len(words)-1] = inflection.Plural(words[len(words)-1])
	return strings.Join(words, "_")
}

func hasWord(words []string, candidates ...string) bool {
	for _, word := range words {
		for _, candidate := range candidates {
			if word == candidate {
				return true
			}
		}
	}
	return false
}

// IsIdentifier reports whether name can be declared as a python class attribute
func IsIdentifier(name string) bool {
	if name == "" || pythonKeywords[name] {
		return false
	}
	for idx, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && idx > 0:
		default:
			return false
		}
	}
	return true
}

func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
}
