package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/viant/odoocheck/inspector/graph"
	"golang.org/x/sync/errgroup"
)

const defaultFilename = "source.py"

// Inspector extracts Odoo models, fields and recordset calls from python sources
type Inspector struct {
	config *graph.Config
}

// NewInspector creates a python Inspector with the provided configuration
func NewInspector(config *graph.Config) *Inspector {
	if config == nil {
		config = graph.DefaultConfig()
	}
	return &Inspector{config: config}
}

// Parse parses python source into a syntax tree
func Parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	return tree, nil
}

// InspectSource parses python source code from a byte slice and extracts models
func (i *Inspector) InspectSource(src []byte) (*graph.File, error) {
	return i.inspect(context.Background(), src, defaultFilename)
}

// InspectFile parses a python source file and extracts models
func (i *Inspector) InspectFile(filename string) (*graph.File, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return i.inspect(context.Background(), src, filename)
}

// InspectPackage inspects all python files under a folder recursively.
// Files that fail to read are returned with Err set, so the caller can keep scanning
func (i *Inspector) InspectPackage(ctx context.Context, packagePath string) ([]*graph.File, error) {
	var paths []string
	err := filepath.WalkDir(packagePath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") || entry.Name() == "__pycache__" {
				return filepath.SkipDir
			}
			return nil
		}
		if IsModelSource(entry.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk package directory %s: %w", packagePath, err)
	}
	sort.Strings(paths)

	files := make([]*graph.File, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	if i.config.Concurrency > 0 {
		group.SetLimit(i.config.Concurrency)
	} else {
		group.SetLimit(defaultConcurrency())
	}
	for idx, path := range paths {
		group.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				files[idx] = &graph.File{Path: path, Name: filepath.Base(path), Err: fmt.Errorf("failed to read file %s: %w", path, err)}
				return nil
			}
			file, err := i.inspect(groupCtx, src, path)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				file = &graph.File{Path: path, Name: filepath.Base(path), Err: err}
			}
			files[idx] = file
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// IsModelSource reports whether a file name may hold model classes
func IsModelSource(name string) bool {
	if filepath.Ext(name) != ".py" {
		return false
	}
	switch name {
	case "__init__.py", "__manifest__.py", "__openerp__.py":
		return false
	}
	return true
}

func defaultConcurrency() int {
	return runtime.NumCPU()
}

func (i *Inspector) inspect(ctx context.Context, src []byte, filename string) (*graph.File, error) {
	tree, err := Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}
	aFile := &graph.File{
		Path: filename,
		Name: filepath.Base(filename),
	}
	if aFile.Hash, err = graph.ContentHash(src); err != nil {
		return nil, err
	}
	root := tree.RootNode()
	aFile.SyntaxErrors = SyntaxErrors(root, src)
	v := &visitor{src: src, file: aFile}
	v.walk(root, scope{})
	return aFile, nil
}

// visitor walks module level statements collecting model classes and mapped calls
type visitor struct {
	src  []byte
	file *graph.File
}

// scope holds the enclosing model and the for loop targets bound to their iterable chain
type scope struct {
	model string
	loops map[string]string
}

func (s scope) bind(name, source string) scope {
	loops := make(map[string]string, len(s.loops)+1)
	for key, value := range s.loops {
		loops[key] = value
	}
	loops[name] = source
	return scope{model: s.model, loops: loops}
}

func (v *visitor) walk(node *sitter.Node, current scope) {
	switch node.Type() {
	case "class_definition":
		if model := v.parseClass(node, nil); model != nil {
			v.file.Models = append(v.file.Models, model)
			current = scope{model: model.Name}
		}
	case "decorated_definition":
		if definition := node.ChildByFieldName("definition"); definition != nil && definition.Type() == "class_definition" {
			if model := v.parseClass(definition, node); model != nil {
				v.file.Models = append(v.file.Models, model)
				current = scope{model: model.Name}
			}
			v.walkChildren(definition, current)
			return
		}
	case "function_definition":
		current = scope{model: current.model}
	case "for_statement":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left != nil && right != nil && left.Type() == "identifier" {
			v.walk(right, current)
			inner := current.bind(left.Content(v.src), recordset(right, v.src, current))
			count := int(node.NamedChildCount())
			for j := 0; j < count; j++ {
				child := node.NamedChild(j)
				if child == nil || child.StartByte() == right.StartByte() && child.EndByte() == right.EndByte() {
					continue
				}
				v.walk(child, inner)
			}
			return
		}
	case "call":
		if call := parseMappedCall(node, v.src); call != nil {
			call.Model = current.model
			if object := node.ChildByFieldName("function").ChildByFieldName("object"); object != nil {
				call.Source = recordset(object, v.src, current)
			}
			v.file.MappedCalls = append(v.file.MappedCalls, call)
		}
	}
	v.walkChildren(node, current)
}

func (v *visitor) walkChildren(node *sitter.Node, current scope) {
	count := int(node.NamedChildCount())
	for j := 0; j < count; j++ {
		if child := node.NamedChild(j); child != nil {
			v.walk(child, current)
		}
	}
}

// recordsetMethods return a recordset of the same model as their receiver
var recordsetMethods = map[string]bool{
	"filtered": true, "sorted": true, "sudo": true, "with_context": true,
	"with_user": true, "with_company": true, "with_env": true, "exists": true,
}

// recordset renders a receiver as a dotted field chain from its root name.
// Loop targets are replaced by their iterable, other expressions give an empty chain
func recordset(node *sitter.Node, src []byte, current scope) string {
	switch node.Type() {
	case "identifier":
		name := node.Content(src)
		if source, ok := current.loops[name]; ok {
			return source
		}
		return name
	case "attribute":
		object := node.ChildByFieldName("object")
		attribute := node.ChildByFieldName("attribute")
		if object == nil || attribute == nil {
			return ""
		}
		root := recordset(object, src, current)
		if root == "" {
			return ""
		}
		return root + "." + attribute.Content(src)
	case "call":
		function := node.ChildByFieldName("function")
		if function == nil || function.Type() != "attribute" {
			return ""
		}
		attribute := function.ChildByFieldName("attribute")
		object := function.ChildByFieldName("object")
		if attribute == nil || object == nil || !recordsetMethods[attribute.Content(src)] {
			return ""
		}
		return recordset(object, src, current)
	case "parenthesized_expression":
		if children := namedChildren(node); len(children) == 1 {
			return recordset(children[0], src, current)
		}
	}
	return ""
}

// parseMappedCall returns a mapped call description for receiver.mapped(arg) calls
func parseMappedCall(call *sitter.Node, src []byte) *graph.MappedCall {
	function := call.ChildByFieldName("function")
	if function == nil || function.Type() != "attribute" {
		return nil
	}
	attribute := function.ChildByFieldName("attribute")
	if attribute == nil || attribute.Content(src) != "mapped" {
		return nil
	}
	result := &graph.MappedCall{Line: line(call)}
	if object := function.ChildByFieldName("object"); object != nil {
		result.Receiver = object.Content(src)
	}
	args := namedChildren(call.ChildByFieldName("arguments"))
	if len(args) == 0 {
		result.IsDynamic = true
		return result
	}
	switch args[0].Type() {
	case "lambda":
		result.IsLambda = true
	default:
		if value, ok := stringValue(args[0], src); ok {
			result.Argument = value
		} else {
			result.IsDynamic = true
		}
	}
	return result
}
