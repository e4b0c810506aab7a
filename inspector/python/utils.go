package python

import (
	"bytes"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/viant/odoocheck/inspector/graph"
)

// namedChildren returns all named children of a node
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := int(node.NamedChildCount())
	result := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		result = append(result, child)
	}
	return result
}

// stringValue returns the value of a python string literal node (no escape processing)
func stringValue(node *sitter.Node, src []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "string":
		return unquote(node.Content(src))
	case "concatenated_string":
		builder := strings.Builder{}
		for _, part := range namedChildren(node) {
			value, ok := stringValue(part, src)
			if !ok {
				return "", false
			}
			builder.WriteString(value)
		}
		return builder.String(), true
	case "parenthesized_expression":
		children := namedChildren(node)
		if len(children) == 1 {
			return stringValue(children[0], src)
		}
	}
	return "", false
}

// unquote strips string prefixes and quotes, f-strings are rejected as dynamic
func unquote(literal string) (string, bool) {
	prefixEnd := 0
	for prefixEnd < len(literal) && strings.ContainsRune("rRbBuUfF", rune(literal[prefixEnd])) {
		prefixEnd++
	}
	if strings.ContainsAny(literal[:prefixEnd], "fF") {
		return "", false
	}
	literal = literal[prefixEnd:]
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(literal) >= 2*len(quote) && strings.HasPrefix(literal, quote) && strings.HasSuffix(literal, quote) {
			return literal[len(quote) : len(literal)-len(quote)], true
		}
	}
	return "", false
}

// stringValues returns literal values of a string, list or tuple node
func stringValues(node *sitter.Node, src []byte) []string {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "list", "tuple":
		var result []string
		for _, item := range namedChildren(node) {
			if value, ok := stringValue(item, src); ok {
				result = append(result, value)
			}
		}
		return result
	}
	if value, ok := stringValue(node, src); ok {
		return []string{value}
	}
	return nil
}

type arguments struct {
	positional []*sitter.Node
	keywords   map[string]*sitter.Node
}

// keyword returns the literal value of a keyword argument
func (a *arguments) keyword(name string, src []byte) string {
	value, _ := stringValue(a.keywords[name], src)
	return value
}

// positionalString returns the literal value of the idx-th positional argument
func (a *arguments) positionalString(idx int, src []byte) string {
	if idx >= len(a.positional) {
		return ""
	}
	value, _ := stringValue(a.positional[idx], src)
	return value
}

// callArguments splits a call argument list into positional and keyword arguments
func callArguments(call *sitter.Node, src []byte) *arguments {
	result := &arguments{keywords: map[string]*sitter.Node{}}
	argList := call.ChildByFieldName("arguments")
	for _, arg := range namedChildren(argList) {
		switch arg.Type() {
		case "keyword_argument":
			name := arg.ChildByFieldName("name")
			if name != nil {
				result.keywords[name.Content(src)] = arg.ChildByFieldName("value")
			}
		case "list_splat", "dictionary_splat":
		default:
			result.positional = append(result.positional, arg)
		}
	}
	return result
}

// newLocation builds a location for a node, indent is the leading whitespace of its first line
func newLocation(node *sitter.Node, src []byte) *graph.Location {
	start := int(node.StartByte())
	lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
	indent := src[lineStart:start]
	if trimmed := strings.TrimLeft(string(indent), " \t"); trimmed != "" {
		indent = indent[:len(indent)-len(trimmed)]
	}
	return &graph.Location{
		Start:   start,
		End:     int(node.EndByte()),
		Line:    int(node.StartPoint().Row) + 1,
		EndLine: int(node.EndPoint().Row) + 1,
		Column:  int(node.StartPoint().Column),
		Indent:  string(indent),
	}
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
