package graph

// MappedCall represents a recordset .mapped(...) call
type MappedCall struct {
	Receiver string
	// Source is the receiver as a field chain from its root name, for loop targets replaced
	// by their iterable (rec in self.line_ids -> self.line_ids), empty when not a plain chain
	Source string `json:",omitempty" yaml:",omitempty"`
	// Argument holds the literal path, empty when the argument is not a string literal
	Argument  string `json:",omitempty" yaml:",omitempty"`
	IsLambda  bool   `json:",omitempty" yaml:",omitempty"`
	IsDynamic bool   `json:",omitempty" yaml:",omitempty"`
	// Model is the model whose class encloses the call, if any
	Model string `json:",omitempty" yaml:",omitempty"`
	Line  int
}

// SyntaxError represents a parse error location
type SyntaxError struct {
	Line    int
	Column  int
	Snippet string
}

// File represents a scanned python source file with its models
type File struct {
	Name         string
	Path         string
	Hash         uint64
	Models       []*Model
	MappedCalls  []*MappedCall  `json:",omitempty" yaml:",omitempty"`
	SyntaxErrors []*SyntaxError `json:",omitempty" yaml:",omitempty"`
	// Err is set when the file could not be read or parsed at all
	Err error `json:"-" yaml:"-"`
}

// HasErrors reports whether the file failed to read or parse cleanly
func (f *File) HasErrors() bool {
	return f.Err != nil || len(f.SyntaxErrors) > 0
}

// LookupModel retrieves a model defined in the file
func (f *File) LookupModel(name string) *Model {
	for _, model := range f.Models {
		if model.Name == name {
			return model
		}
	}
	return nil
}

// ViewField represents a <field name="..."/> reference inside a view arch
type ViewField struct {
	Name string
	Line int
}

// View represents an ir.ui.view record
type View struct {
	ID     string
	Model  string
	File   string
	Line   int
	Fields []*ViewField
}

// AccessRule represents a row of ir.model.access.csv
type AccessRule struct {
	ID         string
	Name       string
	ModelRef   string
	GroupRef   string
	PermRead   bool
	PermWrite  bool
	PermCreate bool
	PermUnlink bool
	File       string
	Line       int
}
