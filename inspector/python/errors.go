package python

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/viant/odoocheck/inspector/graph"
)

const maxSnippet = 60

// SyntaxErrors collects the outermost ERROR and missing nodes of a tree
func SyntaxErrors(root *sitter.Node, src []byte) []*graph.SyntaxError {
	if root == nil || !root.HasError() {
		return nil
	}
	var result []*graph.SyntaxError
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "ERROR" || node.IsMissing() {
			snippet := node.Content(src)
			if node.IsMissing() {
				snippet = "missing " + node.Type()
			}
			if idx := strings.IndexByte(snippet, '\n'); idx != -1 {
				snippet = snippet[:idx]
			}
			if len(snippet) > maxSnippet {
				snippet = snippet[:maxSnippet]
			}
			result = append(result, &graph.SyntaxError{
				Line:    int(node.StartPoint().Row) + 1,
				Column:  int(node.StartPoint().Column),
				Snippet: strings.TrimSpace(snippet),
			})
			return
		}
		if !node.HasError() {
			return
		}
		count := int(node.ChildCount())
		for j := 0; j < count; j++ {
			if child := node.Child(j); child != nil {
				visit(child)
			}
		}
	}
	visit(root)
	return result
}

// Validate parses src and returns its syntax errors, an empty result means the source parses
func Validate(ctx context.Context, src []byte) ([]*graph.SyntaxError, error) {
	tree, err := Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	return SyntaxErrors(tree.RootNode(), src), nil
}
