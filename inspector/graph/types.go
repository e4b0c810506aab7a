package graph

import "strings"

// FieldType represents an Odoo field class (fields.Char, fields.Many2one, ...)
type FieldType string

const (
	Char      FieldType = "Char"
	Text      FieldType = "Text"
	Integer   FieldType = "Integer"
	Float     FieldType = "Float"
	Boolean   FieldType = "Boolean"
	Date      FieldType = "Date"
	Datetime  FieldType = "Datetime"
	Selection FieldType = "Selection"
	Many2one  FieldType = "Many2one"
	One2many  FieldType = "One2many"
	Many2many FieldType = "Many2many"
	Binary    FieldType = "Binary"
	Html      FieldType = "Html"
	Monetary  FieldType = "Monetary"
	Json      FieldType = "Json"
	Reference FieldType = "Reference"
	Image     FieldType = "Image"
)

var fieldTypes = map[string]FieldType{
	"Char": Char, "Text": Text, "Integer": Integer, "Float": Float, "Boolean": Boolean,
	"Date": Date, "Datetime": Datetime, "Selection": Selection, "Many2one": Many2one,
	"One2many": One2many, "Many2many": Many2many, "Binary": Binary, "Html": Html,
	"Monetary": Monetary, "Json": Json, "Reference": Reference, "Image": Image,
}

// ParseFieldType returns the field type for fields.<name>, ok is false for unknown classes
func ParseFieldType(name string) (FieldType, bool) {
	t, ok := fieldTypes[name]
	return t, ok
}

// IsRelational reports whether the field type points at a comodel
func (t FieldType) IsRelational() bool {
	return t == Many2one || t == One2many || t == Many2many
}

// ModelKind distinguishes models.Model, models.TransientModel and models.AbstractModel
type ModelKind string

const (
	KindModel     ModelKind = "model"
	KindTransient ModelKind = "transient"
	KindAbstract  ModelKind = "abstract"
)

// Location represents a span in a source file, lines are 1-based
type Location struct {
	Start   int // start byte offset
	End     int // end byte offset
	Line    int
	EndLine int
	Column  int
	Indent  string `json:"-" yaml:"-"` // leading whitespace of the first line
}

// Literal represents a string literal argument
type Literal struct {
	Value string
	Line  int
}

// Field represents an Odoo field declaration on a model class
type Field struct {
	Name         string
	Type         FieldType
	Comodel      string `json:",omitempty" yaml:",omitempty"`
	InverseField string `json:",omitempty" yaml:",omitempty"`
	String       string `json:",omitempty" yaml:",omitempty"`
	Compute      string `json:",omitempty" yaml:",omitempty"`
	Related      string `json:",omitempty" yaml:",omitempty"`
	Location     *Location
}

// Method represents a method of a model class
type Method struct {
	Name     string
	Depends  []Literal `json:",omitempty" yaml:",omitempty"`
	Location *Location
}

// Class represents a python class definition backing a model
type Class struct {
	Name     string
	Bases    []string
	Location *Location
	// Body spans the indented class block
	Body    *Location
	Methods []*Method
	// LastAttribute is the last class level assignment that is not a field (_name, _order, ...)
	LastAttribute *Location `json:"-" yaml:"-"`
	Docstring     *Location `json:"-" yaml:"-"`
}

// Model represents a parsed Odoo model (ModelRecord)
type Model struct {
	Name        string
	Inherit     []string `json:",omitempty" yaml:",omitempty"`
	Description string   `json:",omitempty" yaml:",omitempty"`
	Kind        ModelKind
	File        string
	Fields      []*Field
	Class       *Class

	fieldMap map[string]int
}

// IsExtension reports whether the class extends an existing model instead of defining one
func (m *Model) IsExtension() bool {
	for _, parent := range m.Inherit {
		if parent == m.Name {
			return true
		}
	}
	return false
}

// AddField adds a field, a later declaration with the same name replaces the earlier one
func (m *Model) AddField(field *Field) {
	if m.fieldMap == nil {
		m.indexFields()
	}
	if idx, ok := m.fieldMap[field.Name]; ok {
		m.Fields[idx] = field
		return
	}
	m.Fields = append(m.Fields, field)
	m.fieldMap[field.Name] = len(m.Fields) - 1
}

// MergeField adds a field, an existing declaration with the same name is overridden.
// Attributes the override leaves out (comodel, inverse, label, compute, related) are kept
func (m *Model) MergeField(field *Field) {
	existing := m.LookupField(field.Name)
	if existing == nil {
		m.AddField(field)
		return
	}
	merged := *field
	if merged.Type == "" {
		merged.Type = existing.Type
	}
	if merged.Type == existing.Type {
		if merged.Comodel == "" {
			merged.Comodel = existing.Comodel
		}
		if merged.InverseField == "" {
			merged.InverseField = existing.InverseField
		}
	}
	if merged.String == "" {
		merged.String = existing.String
	}
	if merged.Compute == "" {
		merged.Compute = existing.Compute
	}
	if merged.Related == "" {
		merged.Related = existing.Related
	}
	m.AddField(&merged)
}

// LookupField retrieves a field by name
func (m *Model) LookupField(name string) *Field {
	if len(m.fieldMap) != len(m.Fields) {
		m.indexFields()
	}
	if idx, ok := m.fieldMap[name]; ok {
		return m.Fields[idx]
	}
	return nil
}

func (m *Model) indexFields() {
	m.fieldMap = make(map[string]int, len(m.Fields))
	for i, field := range m.Fields {
		m.fieldMap[field.Name] = i
	}
}

// LastField returns the last declared field in source order
func (m *Model) LastField() *Field {
	var last *Field
	for _, field := range m.Fields {
		if field.Location == nil {
			continue
		}
		if last == nil || field.Location.End > last.Location.End {
			last = field
		}
	}
	return last
}

// LookupMethod retrieves a class method by name
func (m *Model) LookupMethod(name string) *Method {
	if m.Class == nil {
		return nil
	}
	for _, method := range m.Class.Methods {
		if method.Name == name {
			return method
		}
	}
	return nil
}

// ModelIDRef returns the xml id used by ir.model.access.csv for the model (model_<name>)
func ModelIDRef(name string) string {
	return "model_" + strings.ReplaceAll(name, ".", "_")
}
