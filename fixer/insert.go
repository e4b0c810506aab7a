package fixer

import (
	"bytes"
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/python"
)

// Marker heads the block of fields added by the fixer, a class carries at most one
const Marker = "# === COMPREHENSIVE MISSING FIELDS ==="

// insertFields inserts rendered definitions into the class body of model.
// Fields go after the last field, else after the last class attribute or docstring, else at body start
func insertFields(src []byte, model *graph.Model, definitions []*Definition) ([]byte, error) {
	class := model.Class
	if class.Body == nil {
		return nil, fmt.Errorf("class %s has no body", class.Name)
	}
	hasMarker := bytes.Contains(src[class.Body.Start:class.Body.End], []byte(Marker))

	var anchor *graph.Location
	if last := model.LastField(); last != nil {
		anchor = last.Location
	}
	if anchor == nil {
		anchor = class.LastAttribute
	}
	if anchor == nil {
		anchor = class.Docstring
	}

	block := &bytes.Buffer{}
	if anchor == nil {
		indent := class.Body.Indent
		if indent == "" {
			return nil, fmt.Errorf("class %s body is not an indented block", class.Name)
		}
		writeFields(block, indent, definitions, !hasMarker)
		block.WriteString("\n")
		offset := lineStart(src, class.Body.Start)
		return splice(src, offset, block.Bytes()), nil
	}

	indent := anchor.Indent
	if indent == "" {
		return nil, fmt.Errorf("class %s statement at line %d is not in an indented block", class.Name, anchor.Line)
	}
	offset := lineEnd(src, anchor.End)
	if offset == len(src) && (len(src) == 0 || src[len(src)-1] != '\n') {
		block.WriteString("\n")
	}
	if !hasMarker {
		block.WriteString("\n")
	}
	writeFields(block, indent, definitions, !hasMarker)
	return splice(src, offset, block.Bytes()), nil
}

func writeFields(block *bytes.Buffer, indent string, definitions []*Definition, withMarker bool) {
	if withMarker {
		block.WriteString(indent + Marker + "\n")
	}
	for _, definition := range definitions {
		block.WriteString(indent + definition.Render() + "\n")
	}
}

// lineStart returns the offset of the first byte of the line holding offset
func lineStart(src []byte, offset int) int {
	return bytes.LastIndexByte(src[:offset], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line holding offset
func lineEnd(src []byte, offset int) int {
	if offset > len(src) {
		return len(src)
	}
	idx := bytes.IndexByte(src[offset:], '\n')
	if idx == -1 {
		return len(src)
	}
	return offset + idx + 1
}

func splice(src []byte, offset int, insert []byte) []byte {
	result := make([]byte, 0, len(src)+len(insert))
	result = append(result, src[:offset]...)
	result = append(result, insert...)
	return append(result, src[offset:]...)
}

// ensureFieldsImport makes fields importable: it is added to a "from odoo import ..." statement lacking it,
// or a "from odoo import fields" line follows the last top level import when no such statement exists
func ensureFieldsImport(ctx context.Context, src []byte) ([]byte, error) {
	tree, err := python.Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	lastImport := -1
	offset := -1
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		statement := root.NamedChild(i)
		if statement == nil {
			continue
		}
		switch statement.Type() {
		case "import_statement", "future_import_statement":
			lastImport = int(statement.EndByte())
			continue
		case "import_from_statement":
			lastImport = int(statement.EndByte())
		default:
			continue
		}
		module := statement.ChildByFieldName("module_name")
		if module == nil || module.Content(src) != "odoo" {
			continue
		}
		first, exposed := importedFields(statement, module, src)
		if exposed {
			return src, nil
		}
		if offset == -1 {
			offset = first
		}
	}
	if offset != -1 {
		return splice(src, offset, []byte("fields, ")), nil
	}
	if lastImport == -1 {
		return splice(src, 0, []byte("from odoo import fields\n")), nil
	}
	return splice(src, lastImport, []byte("\nfrom odoo import fields")), nil
}

// importedFields reports whether a "from odoo import" statement binds fields,
// first is the offset of its first imported name or -1
func importedFields(statement, module *sitter.Node, src []byte) (first int, exposed bool) {
	first = -1
	names := int(statement.NamedChildCount())
	for j := 0; j < names; j++ {
		name := statement.NamedChild(j)
		if name == nil || name.StartByte() == module.StartByte() || name.Type() == "comment" {
			continue
		}
		switch name.Type() {
		case "wildcard_import":
			return first, true
		case "aliased_import":
			if alias := name.ChildByFieldName("alias"); alias != nil && alias.Content(src) == "fields" {
				return first, true
			}
		default:
			if name.Content(src) == "fields" {
				return first, true
			}
		}
		if first == -1 {
			first = int(name.StartByte())
		}
	}
	return first, false
}
