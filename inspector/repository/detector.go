package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-git/v5"
	"github.com/viant/afs"
	"github.com/viant/odoocheck/inspector/python"
)

// ErrNotAddon is returned when no manifest is found up the directory tree
var ErrNotAddon = errors.New("odoo addon manifest not found")

// Detector identifies addon root folders and their enclosing repository
type Detector struct {
	// Addon root marker files
	markers []string
	fs      afs.Service
}

// New creates a new addon detector instance
func New() *Detector {
	return &Detector{
		markers: []string{
			"__manifest__.py", // Odoo 10+
			"__openerp__.py",  // legacy addons
		},
		fs: afs.New(),
	}
}

// DetectAddon identifies the addon root for the given file path and returns addon info
func (d *Detector) DetectAddon(ctx context.Context, filePath string) (*Addon, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	startDir := absPath
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !fileInfo.IsDir() {
		startDir = filepath.Dir(absPath)
	}

	rootPath, marker := d.findAddonRoot(startDir)
	if rootPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotAddon, filePath)
	}
	addon := &Addon{
		RootPath: rootPath,
		Name:     filepath.Base(rootPath),
	}
	if relPath, err := filepath.Rel(rootPath, absPath); err == nil {
		addon.RelativePath = filepath.ToSlash(relPath)
	}

	manifestPath := filepath.Join(rootPath, marker)
	content, err := d.fs.DownloadWithURL(ctx, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", manifestPath, err)
	}
	manifest, err := python.ParseManifest(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", manifestPath, err)
	}
	addon.Manifest = manifest
	addon.Title = manifest.Name
	addon.Version = manifest.Version
	addon.Depends = manifest.Depends
	addon.Project = extractPyProjectName(filepath.Dir(rootPath))
	addon.Repository = d.DetectRepository(rootPath)
	return addon, nil
}

// DetectRepository returns the git repository enclosing dir, nil when there is none
func (d *Detector) DetectRepository(dir string) *Repository {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}
	result := &Repository{Kind: "git", Clean: true}
	if worktree, err := repo.Worktree(); err == nil {
		result.Root = worktree.Filesystem.Root()
		if status, err := worktree.Status(); err == nil {
			result.Clean = isClean(status)
		}
	}
	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			result.Origin = urls[0]
		}
	}
	return result
}

// isClean reports a worktree without changes, untracked addon backups are ignored
func isClean(status git.Status) bool {
	for path, fileStatus := range status {
		if fileStatus.Worktree == git.Untracked && fileStatus.Staging == git.Untracked && isBackupPath(path) {
			continue
		}
		if fileStatus.Worktree != git.Unmodified || fileStatus.Staging != git.Unmodified {
			return false
		}
	}
	return true
}

// isBackupPath reports a path inside a <addon>_backup_<timestamp> folder
func isBackupPath(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.Contains(segment, "_backup_") {
			return true
		}
	}
	return false
}

// findAddonRoot searches up from the current directory for manifest markers
func (d *Detector) findAddonRoot(startDir string) (string, string) {
	dir := startDir
	for {
		for _, marker := range d.markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, marker
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ""
}

type pyProject struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// extractPyProjectName reads the project name from the addons folder pyproject.toml
func extractPyProjectName(dir string) string {
	var project pyProject
	if _, err := toml.DecodeFile(filepath.Join(dir, "pyproject.toml"), &project); err != nil {
		return ""
	}
	if project.Project.Name != "" {
		return project.Project.Name
	}
	return project.Tool.Poetry.Name
}
