package graph

// Config controls which addon files are inspected
type Config struct {
	// PythonDirs are addon relative folders holding model classes
	PythonDirs []string
	// XMLDirs are addon relative folders holding views and data
	XMLDirs []string
	// AccessFile is the addon relative location of the access rules csv
	AccessFile string
	// Concurrency limits parallel file parsing, 0 means number of CPUs
	Concurrency int
}

// DefaultConfig returns the standard Odoo addon layout
func DefaultConfig() *Config {
	return &Config{
		PythonDirs: []string{"models", "wizard", "wizards", "report"},
		XMLDirs:    []string{"views", "report", "data", "security", "wizard", "wizards"},
		AccessFile: "security/ir.model.access.csv",
	}
}
