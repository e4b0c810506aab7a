package inspector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/python"
	"github.com/viant/odoocheck/inspector/repository"
	"github.com/viant/odoocheck/inspector/security"
	"github.com/viant/odoocheck/inspector/xml"
)

// Scanner builds the model registry of an addon from its python, xml and csv sources
type Scanner struct {
	config   *graph.Config
	python   *python.Inspector
	xml      *xml.Inspector
	detector *repository.Detector
}

// NewScanner creates a new scanner with the given config
func NewScanner(config *graph.Config) *Scanner {
	if config == nil {
		config = graph.DefaultConfig()
	}
	return &Scanner{
		config:   config,
		python:   python.NewInspector(config),
		xml:      xml.NewInspector(config),
		detector: repository.New(),
	}
}

// Scan inspects the addon rooted at location. Unreadable or unparseable files do not stop
// the scan, they are kept on the module (File.Err, File.SyntaxErrors, Module.Errors)
func (s *Scanner) Scan(ctx context.Context, location string) (*graph.Module, error) {
	rootPath, err := filepath.Abs(location)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", location, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", location)
	}
	module := &graph.Module{Name: filepath.Base(rootPath), RootPath: rootPath}
	if addon, err := s.detector.DetectAddon(ctx, rootPath); err == nil && addon.RootPath == rootPath {
		module.Name = addon.Name
		module.Version = addon.Version
		module.Depends = addon.Depends
	} else if err != nil && !errors.Is(err, repository.ErrNotAddon) {
		module.Errors = append(module.Errors, &graph.FileError{Path: rootPath, Message: err.Error()})
	}

	seen := map[string]bool{}
	for _, dir := range s.config.PythonDirs {
		folder := filepath.Join(rootPath, dir)
		if !isDir(folder) {
			continue
		}
		files, err := s.python.InspectPackage(ctx, folder)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if seen[file.Path] {
				continue
			}
			seen[file.Path] = true
			module.AddFile(file)
		}
	}

	seenViews := map[string]bool{}
	for _, dir := range s.config.XMLDirs {
		folder := filepath.Join(rootPath, dir)
		if !isDir(folder) || seenViews[folder] {
			continue
		}
		seenViews[folder] = true
		views, fileErrors, err := s.xml.InspectPackage(folder)
		if err != nil {
			return nil, err
		}
		module.Views = append(module.Views, views...)
		module.Errors = append(module.Errors, fileErrors...)
	}

	if s.config.AccessFile != "" {
		accessPath := filepath.Join(rootPath, s.config.AccessFile)
		if _, err := os.Stat(accessPath); err == nil {
			module.AccessFile = accessPath
			rules, err := security.InspectFile(accessPath)
			if err != nil {
				module.Errors = append(module.Errors, &graph.FileError{Path: accessPath, Message: err.Error()})
			}
			module.AccessRules = rules
		}
	}
	module.Index()
	return module, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
