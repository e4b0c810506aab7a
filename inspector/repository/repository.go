package repository

import "github.com/viant/odoocheck/inspector/python"

// Repository represents the version control repository enclosing an addon
type Repository struct {
	Kind   string
	Root   string
	Origin string
	// Clean is false when the worktree has uncommitted changes
	Clean bool
}

// Addon represents a detected Odoo addon
type Addon struct {
	RootPath     string // Absolute path to the addon directory (holding __manifest__.py)
	Name         string // Technical name (directory name)
	Title        string // Manifest name
	Version      string
	Depends      []string
	RelativePath string // Path from addon root to the inspected location
	Manifest     *python.Manifest
	Project      string // pyproject.toml name of the enclosing project, if any
	Repository   *Repository
}
