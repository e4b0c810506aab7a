package fixer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/python"
	"github.com/viant/odoocheck/inspector/security"
	"github.com/viant/odoocheck/inspector/xml"
)

var (
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
	fenceLine      = regexp.MustCompile("^\\s*```[\\w+-]*\\s*$")
	filepathHeader = regexp.MustCompile(`^\s*(#|<!--)\s*filepath:`)
	conflictMarker = regexp.MustCompile(`^(<{7}|={7}|>{7})(\s|$)`)
)

// cleanable lists extensions CleanArtifacts edits
var cleanable = map[string]bool{".py": true, ".xml": true, ".csv": true}

// CleanModule removes paste artifacts from every python, xml and csv file of the addon
func (f *Fixer) CleanModule(ctx context.Context, module *graph.Module) ([]*Change, error) {
	var paths []string
	err := filepath.WalkDir(module.RootPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != module.RootPath && (strings.HasPrefix(entry.Name(), ".") || entry.Name() == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if cleanable[filepath.Ext(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", module.RootPath, err)
	}
	var changes []*Change
	for _, path := range paths {
		change, err := f.CleanArtifacts(ctx, path)
		if err != nil {
			return changes, err
		}
		if change != nil {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

// CleanArtifacts strips a UTF-8 BOM, CRLF line endings, markdown fences, filepath headers and
// trailing whitespace. Merge conflict markers are reported in Notes and left in place.
// Python string literals are never edited.
// A nil change means the file was already clean
func (f *Fixer) CleanArtifacts(ctx context.Context, path string) (*Change, error) {
	src, err := f.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var content []byte
	var notes []string
	if filepath.Ext(path) == ".py" {
		if content, notes, err = CleanPython(ctx, src); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		content, notes = Clean(src)
	}
	if bytes.Equal(content, src) {
		if len(notes) > 0 {
			return &Change{Kind: KindClean, Path: path, Notes: notes, Content: content}, nil
		}
		return nil, nil
	}
	if err = f.validateFile(ctx, path, src, content); err != nil {
		return nil, err
	}
	change := &Change{Kind: KindClean, Path: path, Notes: notes, Content: content}
	return change, f.apply(ctx, change)
}

// validateFile checks cleaned content by file type. Content that did not parse before
// cleaning is only required not to get worse
func (f *Fixer) validateFile(ctx context.Context, path string, before, after []byte) error {
	switch filepath.Ext(path) {
	case ".py":
		previous, err := python.Validate(ctx, before)
		if err != nil {
			return err
		}
		if len(previous) == 0 {
			return f.validate(ctx, path, after)
		}
		current, err := python.Validate(ctx, after)
		if err != nil {
			return err
		}
		if len(current) > len(previous) {
			return fmt.Errorf("%w: %s: %d syntax errors, %d before cleaning", ErrSyntaxAfterFix, path, len(current), len(previous))
		}
	case ".xml":
		if xml.Validate(before) == nil {
			if err := xml.Validate(after); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSyntaxAfterFix, path, err)
			}
		}
	case ".csv":
		if filepath.Base(path) != "ir.model.access.csv" {
			return nil
		}
		if _, err := security.InspectSource(before); err == nil {
			if _, err = security.InspectSource(after); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSyntaxAfterFix, path, err)
			}
		}
	}
	return nil
}

// Clean returns src without paste artifacts and notes describing what was found
func Clean(src []byte) ([]byte, []string) {
	text, notes := normalize(src)
	return clean(text, notes, nil)
}

// CleanPython is Clean for python sources: lines inside multi-line string literals are kept as is
func CleanPython(ctx context.Context, src []byte) ([]byte, []string, error) {
	text, notes := normalize(src)
	tree, err := python.Parse(ctx, []byte(text))
	if err != nil {
		return nil, nil, err
	}
	literals := &literalRows{inner: map[int]bool{}, open: map[int]bool{}}
	literals.collect(tree.RootNode())
	content, notes := clean(text, notes, literals)
	return content, notes, nil
}

// literalRows holds 0-based rows covered by multi-line string literals.
// inner rows start inside a literal, open rows end inside one
type literalRows struct {
	inner map[int]bool
	open  map[int]bool
}

func (l *literalRows) collect(node *sitter.Node) {
	if node.Type() == "string" {
		start, end := int(node.StartPoint().Row), int(node.EndPoint().Row)
		for row := start; row < end; row++ {
			l.open[row] = true
			l.inner[row+1] = true
		}
		return
	}
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		if child := node.Child(i); child != nil {
			l.collect(child)
		}
	}
}

// normalize drops a byte order mark and CRLF line endings
func normalize(src []byte) (string, []string) {
	var notes []string
	if bytes.HasPrefix(src, utf8BOM) {
		src = src[len(utf8BOM):]
		notes = append(notes, "removed byte order mark")
	}
	text := string(src)
	if strings.Contains(text, "\r\n") {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		notes = append(notes, "converted CRLF line endings")
	}
	return text, notes
}

func clean(text string, notes []string, literals *literalRows) ([]byte, []string) {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	var fences, headers, trailing int
	for idx, line := range lines {
		switch {
		case literals != nil && literals.inner[idx]:
		case fenceLine.MatchString(line):
			fences++
			continue
		case filepathHeader.MatchString(line):
			headers++
			continue
		case conflictMarker.MatchString(line):
			notes = append(notes, fmt.Sprintf("merge conflict marker at line %d", idx+1))
		}
		trimmed := line
		if literals == nil || !literals.open[idx] {
			trimmed = strings.TrimRight(line, " \t")
		}
		if trimmed != line {
			trailing++
		}
		kept = append(kept, trimmed)
	}
	if fences > 0 {
		notes = append(notes, fmt.Sprintf("removed %d markdown fence line(s)", fences))
	}
	if headers > 0 {
		notes = append(notes, fmt.Sprintf("removed %d filepath header(s)", headers))
	}
	if trailing > 0 {
		notes = append(notes, fmt.Sprintf("trimmed trailing whitespace on %d line(s)", trailing))
	}
	text = strings.TrimRight(strings.Join(kept, "\n"), "\n")
	if text != "" {
		text += "\n"
	}
	return []byte(text), notes
}
