// Package backup snapshots an addon directory before it is modified
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/logging"
	"go.uber.org/zap"
	"golang.org/x/mod/sumdb/dirhash"
	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile is written at the root of every backup
	ManifestFile = "MANIFEST.yaml"
	timeLayout   = "20060102_150405"
	maxAttempts  = 1000
)

var (
	// ErrCorrupt is returned when backup content does not match its manifest
	ErrCorrupt = errors.New("backup does not match manifest")
	// skipDirs are never copied
	skipDirs = map[string]bool{".git": true, "__pycache__": true}
)

// Entry represents a backed up file
type Entry struct {
	Path string `yaml:"path"`
	Size int64  `yaml:"size"`
	Hash string `yaml:"hash"`
}

// Manifest describes a backup
type Manifest struct {
	Addon    string    `yaml:"addon"`
	Source   string    `yaml:"source"`
	Created  time.Time `yaml:"created"`
	RunID    string    `yaml:"run_id,omitempty"`
	TreeHash string    `yaml:"tree_hash"`
	Files    []*Entry  `yaml:"files"`
}

// Backup represents a created backup directory
type Backup struct {
	Path     string
	Manifest *Manifest
}

// Service creates, verifies and restores backups
type Service struct {
	fs     afs.Service
	now    func() time.Time
	logger *logging.Logger
}

// Option configures a Service
type Option func(s *Service)

// WithClock overrides the time source used to name backups
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a backup service
func New(logger *logging.Logger, options ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := &Service{fs: afs.New(), now: time.Now, logger: logger.Named("backup")}
	for _, option := range options {
		option(result)
	}
	return result
}

// CreateUniqueBackup copies src into <root>/<name>_backup_<YYYYMMDD_HHMMSS>, adding a numeric suffix
// when that directory exists. root defaults to the parent of src. An existing directory is never reused
func (s *Service) CreateUniqueBackup(ctx context.Context, src, root string) (*Backup, error) {
	source, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", src, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", src)
	}
	if root == "" {
		root = filepath.Dir(source)
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, err
	}
	if err = os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup root %s: %w", root, err)
	}
	name := filepath.Base(source)
	target, err := reserve(filepath.Join(root, name+"_backup_"+s.now().Format(timeLayout)))
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{Addon: name, Source: source, Created: s.now().UTC(), RunID: logging.RunIDFromContext(ctx)}
	err = filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != source && (skipDirs[entry.Name()] || path == root || path == target) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		data, err := s.copy(ctx, path, filepath.Join(target, rel))
		if err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, &Entry{Path: filepath.ToSlash(rel), Size: int64(len(data)), Hash: graph.HexHash(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s to %s: %w", source, target, err)
	}
	if manifest.TreeHash, err = treeHash(target, manifest.Files); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	if err = s.fs.Upload(ctx, filepath.Join(target, ManifestFile), 0o644, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	s.logger.Info(ctx, "backup created",
		zap.String("path", target),
		zap.Int("files", len(manifest.Files)),
		zap.String("tree_hash", manifest.TreeHash))
	return &Backup{Path: target, Manifest: manifest}, nil
}

// reserve creates base, or base_N for the first free N
func reserve(base string) (string, error) {
	candidate := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create backup directory %s: %w", candidate, err)
		}
		candidate = base + "_" + strconv.Itoa(attempt)
	}
	return "", fmt.Errorf("failed to create backup directory %s: %d candidates exist", base, maxAttempts)
}

// copy copies one file and returns its content
func (s *Service) copy(ctx context.Context, from, to string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", from, err)
	}
	if err = os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return nil, err
	}
	if err = s.fs.Upload(ctx, to, 0o644, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", to, err)
	}
	return data, nil
}

// Load reads the manifest of a backup directory
func (s *Service) Load(ctx context.Context, dir string) (*Manifest, error) {
	data, err := s.fs.DownloadWithURL(ctx, filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest of %s: %w", dir, err)
	}
	manifest := &Manifest{}
	if err = yaml.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest of %s: %w", dir, err)
	}
	return manifest, nil
}

// Verify recomputes the tree hash of a backup and checks its file list against the manifest
func (s *Service) Verify(ctx context.Context, dir string) (*Manifest, error) {
	manifest, err := s.Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	files, err := dirhash.DirFiles(dir, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	expected := map[string]bool{}
	for _, entry := range manifest.Files {
		expected[entry.Path] = true
	}
	var problems []string
	for _, file := range files {
		if file != ManifestFile && !expected[file] {
			problems = append(problems, "unexpected "+file)
		}
	}
	for _, entry := range manifest.Files {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(entry.Path))); err != nil {
			problems = append(problems, "missing "+entry.Path)
		}
	}
	if len(problems) == 0 {
		actual, err := treeHash(dir, manifest.Files)
		if err != nil {
			return nil, err
		}
		if actual != manifest.TreeHash {
			problems = append(problems, fmt.Sprintf("tree hash %s, expected %s", actual, manifest.TreeHash))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return manifest, fmt.Errorf("%w: %s: %s", ErrCorrupt, dir, strings.Join(problems, ", "))
	}
	return manifest, nil
}

// Restore verifies a backup and copies its files over target, target files absent from the backup are kept
func (s *Service) Restore(ctx context.Context, dir, target string) ([]string, error) {
	manifest, err := s.Verify(ctx, dir)
	if err != nil {
		return nil, err
	}
	if target == "" {
		target = manifest.Source
	}
	var restored []string
	for _, entry := range manifest.Files {
		from := filepath.Join(dir, filepath.FromSlash(entry.Path))
		if _, err = s.copy(ctx, from, filepath.Join(target, filepath.FromSlash(entry.Path))); err != nil {
			return restored, err
		}
		restored = append(restored, entry.Path)
	}
	s.logger.Info(ctx, "backup restored", zap.String("backup", dir), zap.String("target", target), zap.Int("files", len(restored)))
	return restored, nil
}

// treeHash returns the dirhash h1 digest of the listed files
func treeHash(dir string, entries []*Entry) (string, error) {
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Path)
	}
	return dirhash.Hash1(files, func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	})
}
