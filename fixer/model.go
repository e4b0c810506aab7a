package fixer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/odoocheck/inspector/graph"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ModelsDir is the addon folder receiving created model files
const ModelsDir = "models"

// CreateModel writes a new model file for a model missing from the registry and registers
// its import in models/__init__.py. Existing files are never overwritten
func (f *Fixer) CreateModel(ctx context.Context, module *graph.Module, model string, definitions []*Definition) ([]*Change, error) {
	if module.LookupModel(model) != nil {
		return nil, fmt.Errorf("model %s is already declared", model)
	}
	if prefix := f.config.ModelPrefix; prefix != "" && !strings.HasPrefix(model, prefix+".") {
		return nil, fmt.Errorf("model %s is outside prefix %s", model, prefix)
	}
	moduleName := strings.ReplaceAll(model, ".", "_")
	if !IsIdentifier(moduleName) {
		return nil, fmt.Errorf("%w: model %q", ErrInvalidFieldName, model)
	}
	path := filepath.Join(module.RootPath, ModelsDir, moduleName+".py")
	exists, err := f.fs.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
	}
	content := renderModel(model, definitions)
	if err = f.validate(ctx, path, content); err != nil {
		return nil, err
	}
	created := &Change{Kind: KindCreateModel, Path: path, Model: model, Content: content}
	for _, definition := range definitions {
		created.Fields = append(created.Fields, definition.Name)
	}

	initPath := filepath.Join(module.RootPath, ModelsDir, "__init__.py")
	var initSrc []byte
	if ok, _ := f.fs.Exists(ctx, initPath); ok {
		if initSrc, err = f.fs.DownloadWithURL(ctx, initPath); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", initPath, err)
		}
	}
	initContent, added := registerImport(initSrc, moduleName)
	changes := []*Change{created}
	if added {
		if err = f.validate(ctx, initPath, initContent); err != nil {
			return nil, err
		}
		changes = append(changes, &Change{Kind: KindRegisterImport, Path: initPath, Model: model, Content: initContent})
	}
	for _, change := range changes {
		if err = f.apply(ctx, change); err != nil {
			return changes, err
		}
	}
	return changes, nil
}

// renderModel renders a minimal model class, name is always declared
func renderModel(model string, definitions []*Definition) []byte {
	label := cases.Title(language.English).String(strings.NewReplacer(".", " ", "_", " ").Replace(model))
	className := strings.ReplaceAll(label, " ", "")
	buffer := &bytes.Buffer{}
	buffer.WriteString("from odoo import fields, models\n\n\n")
	fmt.Fprintf(buffer, "class %s(models.Model):\n", className)
	fmt.Fprintf(buffer, "    _name = %s\n", quote(model))
	fmt.Fprintf(buffer, "    _description = %s\n\n", quote(label))
	buffer.WriteString("    name = fields.Char(string='Name', required=True)\n")
	var extra []*Definition
	for _, definition := range definitions {
		if definition.Name != "name" {
			extra = append(extra, definition)
		}
	}
	if len(extra) > 0 {
		buffer.WriteString("\n")
		writeFields(buffer, "    ", extra, true)
	}
	return buffer.Bytes()
}

// registerImport appends "from . import name" unless the module is already imported
func registerImport(src []byte, name string) ([]byte, bool) {
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "from . import ") {
			continue
		}
		for _, imported := range strings.Split(strings.TrimPrefix(line, "from . import "), ",") {
			if strings.TrimSpace(imported) == name {
				return src, false
			}
		}
	}
	result := append([]byte{}, src...)
	if len(result) > 0 && result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}
	return append(result, []byte("from . import "+name+"\n")...), true
}
