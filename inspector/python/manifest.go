package python

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Manifest represents the literal dictionary of an addon __manifest__.py
type Manifest struct {
	Name        string
	Version     string
	Summary     string
	Depends     []string
	Data        []string
	Installable bool
}

// ParseManifest extracts string and list entries from the manifest dictionary
func ParseManifest(ctx context.Context, src []byte) (*Manifest, error) {
	tree, err := Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	dict := findDictionary(tree.RootNode())
	if dict == nil {
		return nil, fmt.Errorf("manifest dictionary not found")
	}
	manifest := &Manifest{Installable: true}
	for _, pair := range namedChildren(dict) {
		if pair.Type() != "pair" {
			continue
		}
		key, ok := stringValue(pair.ChildByFieldName("key"), src)
		if !ok {
			continue
		}
		value := pair.ChildByFieldName("value")
		if value == nil {
			continue
		}
		switch key {
		case "name":
			manifest.Name, _ = stringValue(value, src)
		case "version":
			manifest.Version, _ = stringValue(value, src)
		case "summary":
			manifest.Summary, _ = stringValue(value, src)
		case "depends":
			manifest.Depends = stringValues(value, src)
		case "data":
			manifest.Data = stringValues(value, src)
		case "installable":
			manifest.Installable = value.Content(src) != "False"
		}
	}
	return manifest, nil
}

func findDictionary(node *sitter.Node) *sitter.Node {
	if node.Type() == "dictionary" {
		return node
	}
	for _, child := range namedChildren(node) {
		if dict := findDictionary(child); dict != nil {
			return dict
		}
	}
	return nil
}
