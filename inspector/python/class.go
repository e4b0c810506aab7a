package python

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/viant/odoocheck/inspector/graph"
)

var modelBases = map[string]graph.ModelKind{
	"models.Model":          graph.KindModel,
	"Model":                 graph.KindModel,
	"models.TransientModel": graph.KindTransient,
	"TransientModel":        graph.KindTransient,
	"models.AbstractModel":  graph.KindAbstract,
	"AbstractModel":         graph.KindAbstract,
}

// parseClass returns a model for classes deriving from an Odoo model base, nil otherwise
func (v *visitor) parseClass(node *sitter.Node, decorated *sitter.Node) *graph.Model {
	src := v.src
	class := &graph.Class{}
	if name := node.ChildByFieldName("name"); name != nil {
		class.Name = name.Content(src)
	}
	kind := graph.ModelKind("")
	for _, base := range namedChildren(node.ChildByFieldName("superclasses")) {
		if base.Type() == "keyword_argument" {
			continue
		}
		text := base.Content(src)
		class.Bases = append(class.Bases, text)
		if baseKind, ok := modelBases[text]; ok && kind == "" {
			kind = baseKind
		}
	}
	if kind == "" {
		return nil
	}
	outer := node
	if decorated != nil {
		outer = decorated
	}
	class.Location = newLocation(outer, src)
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	class.Body = newLocation(body, src)

	model := &graph.Model{Kind: kind, File: v.file.Path, Class: class}
	statements := namedChildren(body)
	for idx, statement := range statements {
		switch statement.Type() {
		case "expression_statement":
			v.parseClassStatement(statement, idx == 0, model)
		case "function_definition":
			class.Methods = append(class.Methods, v.parseMethod(statement, nil))
		case "decorated_definition":
			if definition := statement.ChildByFieldName("definition"); definition != nil && definition.Type() == "function_definition" {
				class.Methods = append(class.Methods, v.parseMethod(definition, statement))
			}
		}
	}

	if model.Name == "" && len(model.Inherit) > 0 {
		model.Name = model.Inherit[0]
	}
	if model.Name == "" {
		return nil
	}
	return model
}

// parseClassStatement handles class level assignments: _name, _inherit, _description and fields
func (v *visitor) parseClassStatement(statement *sitter.Node, first bool, model *graph.Model) {
	src := v.src
	children := namedChildren(statement)
	if len(children) == 0 {
		return
	}
	expr := children[0]
	if expr.Type() == "string" && first {
		model.Class.Docstring = newLocation(statement, src)
		return
	}
	if expr.Type() != "assignment" {
		return
	}
	left := expr.ChildByFieldName("left")
	right := expr.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return
	}
	name := left.Content(src)
	switch name {
	case "_name":
		if value, ok := stringValue(right, src); ok {
			model.Name = value
		}
	case "_inherit":
		model.Inherit = stringValues(right, src)
	case "_description":
		if value, ok := stringValue(right, src); ok {
			model.Description = value
		}
	default:
		if field := parseField(name, right, src); field != nil {
			field.Location = newLocation(statement, src)
			model.AddField(field)
			return
		}
	}
	model.Class.LastAttribute = newLocation(statement, src)
}

// parseField returns a field for name = fields.<Type>(...) assignments
func parseField(name string, value *sitter.Node, src []byte) *graph.Field {
	if value.Type() != "call" {
		return nil
	}
	function := value.ChildByFieldName("function")
	if function == nil || function.Type() != "attribute" {
		return nil
	}
	object := function.ChildByFieldName("object")
	attribute := function.ChildByFieldName("attribute")
	if object == nil || attribute == nil || object.Content(src) != "fields" {
		return nil
	}
	fieldType, ok := graph.ParseFieldType(attribute.Content(src))
	if !ok {
		fieldType = graph.FieldType(attribute.Content(src))
	}
	args := callArguments(value, src)
	field := &graph.Field{
		Name:    name,
		Type:    fieldType,
		String:  args.keyword("string", src),
		Compute: args.keyword("compute", src),
		Related: args.keyword("related", src),
	}
	switch fieldType {
	case graph.Many2one, graph.One2many, graph.Many2many:
		field.Comodel = args.keyword("comodel_name", src)
		if field.Comodel == "" {
			field.Comodel = args.positionalString(0, src)
		}
		if fieldType == graph.One2many {
			field.InverseField = args.keyword("inverse_name", src)
			if field.InverseField == "" {
				field.InverseField = args.positionalString(1, src)
			}
		}
		if fieldType == graph.Many2one && field.String == "" {
			field.String = args.positionalString(1, src)
		}
	case graph.Selection, graph.Reference:
		if field.String == "" {
			field.String = args.positionalString(1, src)
		}
	default:
		if field.String == "" {
			field.String = args.positionalString(0, src)
		}
	}
	return field
}

// parseMethod extracts a method with its @api.depends literals
func (v *visitor) parseMethod(node *sitter.Node, decorated *sitter.Node) *graph.Method {
	src := v.src
	method := &graph.Method{}
	if name := node.ChildByFieldName("name"); name != nil {
		method.Name = name.Content(src)
	}
	outer := node
	if decorated != nil {
		outer = decorated
	}
	method.Location = newLocation(outer, src)
	if decorated == nil {
		return method
	}
	for _, decorator := range namedChildren(decorated) {
		if decorator.Type() != "decorator" {
			continue
		}
		for _, expr := range namedChildren(decorator) {
			if expr.Type() != "call" {
				continue
			}
			function := expr.ChildByFieldName("function")
			if function == nil || strings.ReplaceAll(function.Content(src), " ", "") != "api.depends" {
				continue
			}
			for _, arg := range callArguments(expr, src).positional {
				if value, ok := stringValue(arg, src); ok {
					method.Depends = append(method.Depends, graph.Literal{Value: value, Line: line(arg)})
				}
			}
		}
	}
	return method
}
