package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/odoocheck/inspector/graph"
)

// Inspector extracts ir.ui.view records and their field references from addon xml files
type Inspector struct {
	config *graph.Config
}

// NewInspector creates an xml Inspector
func NewInspector(config *graph.Config) *Inspector {
	if config == nil {
		config = graph.DefaultConfig()
	}
	return &Inspector{config: config}
}

// InspectFile parses an xml file and returns its views
func (i *Inspector) InspectFile(filename string) ([]*graph.View, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	views, err := i.InspectSource(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}
	for _, view := range views {
		view.File = filename
	}
	return views, nil
}

// InspectPackage inspects all xml files under a folder recursively, unparseable files are
// reported as FileError and skipped
func (i *Inspector) InspectPackage(packagePath string) ([]*graph.View, []*graph.FileError, error) {
	var paths []string
	err := filepath.WalkDir(packagePath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(path), ".xml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk package directory %s: %w", packagePath, err)
	}
	sort.Strings(paths)
	var views []*graph.View
	var fileErrors []*graph.FileError
	for _, path := range paths {
		fileViews, err := i.InspectFile(path)
		if err != nil {
			fileErrors = append(fileErrors, &graph.FileError{Path: path, Line: errorLine(err), Message: err.Error()})
			continue
		}
		views = append(views, fileViews...)
	}
	return views, fileErrors, nil
}

// InspectSource parses xml content and returns view records
func (i *Inspector) InspectSource(src []byte) ([]*graph.View, error) {
	decoder := xml.NewDecoder(bytes.NewReader(src))
	var views []*graph.View
	var stack []string
	var view *graph.View
	recordDepth := -1
	archDepth := -1
	archFieldDepth := 0
	capturingModel := false
	var text strings.Builder

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch element := token.(type) {
		case xml.StartElement:
			name := element.Name.Local
			depth := len(stack)
			stack = append(stack, name)
			line, _ := decoder.InputPos()
			switch {
			case name == "record" && attr(element, "model") == "ir.ui.view":
				view = &graph.View{ID: attr(element, "id"), Line: line}
				recordDepth = depth
			case view != nil && archDepth == -1 && depth == recordDepth+1 && name == "field":
				switch attr(element, "name") {
				case "model":
					capturingModel = true
					text.Reset()
				case "arch":
					archDepth = depth
				}
			case view != nil && archDepth != -1 && name == "field":
				if archFieldDepth == 0 {
					if fieldName := attr(element, "name"); fieldName != "" {
						view.Fields = append(view.Fields, &graph.ViewField{Name: fieldName, Line: line})
					}
				}
				archFieldDepth++
			}
		case xml.CharData:
			if capturingModel {
				text.Write(element)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected closing element %s", element.Name.Local)
			}
			stack = stack[:len(stack)-1]
			depth := len(stack)
			switch {
			case capturingModel:
				view.Model = strings.TrimSpace(text.String())
				capturingModel = false
			case view != nil && depth == archDepth:
				archDepth = -1
				archFieldDepth = 0
			case view != nil && archDepth != -1 && element.Name.Local == "field":
				archFieldDepth--
			case view != nil && depth == recordDepth:
				views = append(views, view)
				view = nil
				recordDepth = -1
			}
		}
	}
	return views, nil
}

// Validate reports whether src is well formed xml
func Validate(src []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(src))
	for {
		_, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func attr(element xml.StartElement, name string) string {
	for _, candidate := range element.Attr {
		if candidate.Name.Local == name {
			return candidate.Value
		}
	}
	return ""
}

func errorLine(err error) int {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Line
	}
	return 0
}
