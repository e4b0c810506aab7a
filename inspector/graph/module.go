package graph

import (
	"path/filepath"
	"sort"
)

// Module represents a scanned Odoo addon with its model registry
type Module struct {
	Name        string
	Version     string   `json:",omitempty" yaml:",omitempty"`
	Depends     []string `json:",omitempty" yaml:",omitempty"`
	RootPath    string
	Files       []*File
	Views       []*View       `json:",omitempty" yaml:",omitempty"`
	AccessRules []*AccessRule `json:",omitempty" yaml:",omitempty"`
	// AccessFile is the location of ir.model.access.csv, empty when the addon has none
	AccessFile string `json:",omitempty" yaml:",omitempty"`
	// Errors holds non python files that failed to read or parse
	Errors []*FileError `json:",omitempty" yaml:",omitempty"`

	modelMap map[string]*Model
}

// FileError represents a file that could not be inspected
type FileError struct {
	Path    string
	Line    int
	Message string
}

// AddFile adds a scanned file, call Index once all files are added
func (m *Module) AddFile(file *File) {
	m.Files = append(m.Files, file)
	m.modelMap = nil
}

// Index builds the merged model registry.
// Classes sharing a model name are merged, fields accumulate in file order and
// a redeclared field keeps the attributes its override leaves out
func (m *Module) Index() {
	sort.SliceStable(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	m.modelMap = make(map[string]*Model)
	for _, file := range m.Files {
		for _, model := range file.Models {
			merged, ok := m.modelMap[model.Name]
			if !ok {
				merged = &Model{Name: model.Name, Kind: model.Kind, File: model.File, Class: model.Class, Description: model.Description}
				m.modelMap[model.Name] = merged
			}
			if !model.IsExtension() && merged.File != model.File {
				// defining class wins over extensions seen earlier
				merged.File = model.File
				merged.Class = model.Class
				merged.Kind = model.Kind
			}
			if merged.Description == "" {
				merged.Description = model.Description
			}
			merged.Inherit = appendUnique(merged.Inherit, model.Inherit...)
			for _, field := range model.Fields {
				merged.MergeField(field)
			}
		}
	}
	for _, model := range m.modelMap {
		m.inheritParents(model, map[string]bool{})
	}
}

// inheritParents copies fields of in-registry parents (_inherit = ['a', 'b']) onto the model
func (m *Module) inheritParents(model *Model, visited map[string]bool) {
	if visited[model.Name] {
		return
	}
	visited[model.Name] = true
	for _, parentName := range model.Inherit {
		if parentName == model.Name {
			continue
		}
		parent, ok := m.modelMap[parentName]
		if !ok {
			continue
		}
		m.inheritParents(parent, visited)
		for _, field := range parent.Fields {
			if model.LookupField(field.Name) == nil {
				model.AddField(field)
			}
		}
	}
}

// LookupModel retrieves a merged model by name
func (m *Module) LookupModel(name string) *Model {
	if m.modelMap == nil {
		m.Index()
	}
	return m.modelMap[name]
}

// Models returns merged models sorted by name
func (m *Module) Models() []*Model {
	if m.modelMap == nil {
		m.Index()
	}
	result := make([]*Model, 0, len(m.modelMap))
	for _, model := range m.modelMap {
		result = append(result, model)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ModelByRef resolves an access csv model reference (model_x_y) to a registry model name
func (m *Module) ModelByRef(ref string) (string, bool) {
	for _, model := range m.Models() {
		if ModelIDRef(model.Name) == ref {
			return model.Name, true
		}
	}
	return "", false
}

// LookupFile retrieves a scanned file by path, relative paths are resolved against RootPath
func (m *Module) LookupFile(path string) *File {
	for _, file := range m.Files {
		if file.Path == path || (m.RootPath != "" && filepath.Join(m.RootPath, path) == file.Path) {
			return file
		}
	}
	return nil
}

// Definition returns the class defining the model (not an _inherit extension) and its file
func (m *Module) Definition(name string) (*Model, *File) {
	var fallback *Model
	var fallbackFile *File
	for _, file := range m.Files {
		for _, model := range file.Models {
			if model.Name != name {
				continue
			}
			if !model.IsExtension() {
				return model, file
			}
			if fallback == nil {
				fallback, fallbackFile = model, file
			}
		}
	}
	return fallback, fallbackFile
}

// RelativePath returns a path relative to the module root
func (m *Module) RelativePath(path string) string {
	if m.RootPath == "" {
		return path
	}
	if rel, err := filepath.Rel(m.RootPath, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func appendUnique(target []string, values ...string) []string {
outer:
	for _, value := range values {
		for _, existing := range target {
			if existing == value {
				continue outer
			}
		}
		target = append(target, value)
	}
	return target
}
