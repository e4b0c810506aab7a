package fixer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/security"
)

// AccessFile is the addon relative location of the access rules csv
const AccessFile = "security/ir.model.access.csv"

// AccessRules returns the rows granting the configured user and manager groups access to model.
// Transient models only get the user row with full permissions
func (f *Fixer) AccessRules(model *graph.Model) []*graph.AccessRule {
	base := strings.ReplaceAll(model.Name, ".", "_")
	ref := graph.ModelIDRef(model.Name)
	if model.Kind == graph.KindTransient {
		return []*graph.AccessRule{{
			ID: "access_" + base + "_user", Name: model.Name + ".user", ModelRef: ref, GroupRef: f.config.UserGroup,
			PermRead: true, PermWrite: true, PermCreate: true, PermUnlink: true,
		}}
	}
	return []*graph.AccessRule{
		{
			ID: "access_" + base + "_user", Name: model.Name + ".user", ModelRef: ref, GroupRef: f.config.UserGroup,
			PermRead: true, PermWrite: true, PermCreate: true,
		},
		{
			ID: "access_" + base + "_manager", Name: model.Name + ".manager", ModelRef: ref, GroupRef: f.config.ManagerGroup,
			PermRead: true, PermWrite: true, PermCreate: true, PermUnlink: true,
		},
	}
}

// AddAccessRules appends access rows for concrete models of the addon lacking any, creating
// the csv with its header when the addon has none. Rows whose id already exists are skipped
func (f *Fixer) AddAccessRules(ctx context.Context, module *graph.Module) (*Change, error) {
	covered := map[string]bool{}
	ids := map[string]bool{}
	for _, rule := range module.AccessRules {
		ids[rule.ID] = true
		if name, ok := module.ModelByRef(security.ModelName(rule.ModelRef)); ok {
			covered[name] = true
		}
	}
	var rows []*graph.AccessRule
	var models []string
	for _, model := range module.Models() {
		if covered[model.Name] || model.Kind == graph.KindAbstract || model.IsExtension() {
			continue
		}
		added := false
		for _, rule := range f.AccessRules(model) {
			if ids[rule.ID] {
				continue
			}
			ids[rule.ID] = true
			rows = append(rows, rule)
			added = true
		}
		if added {
			models = append(models, model.Name)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	path := module.AccessFile
	var src []byte
	var notes []string
	if path == "" {
		path = filepath.Join(module.RootPath, filepath.FromSlash(AccessFile))
		if ok, _ := f.fs.Exists(ctx, path); ok {
			return nil, fmt.Errorf("%w: %s was not scanned", ErrFileExists, path)
		}
		notes = append(notes, fmt.Sprintf("created %s, list it in the manifest data", AccessFile))
	} else {
		var err error
		if src, err = f.fs.DownloadWithURL(ctx, path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	content, err := appendRows(src, rows)
	if err != nil {
		return nil, err
	}
	if _, err = security.InspectSource(content); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSyntaxAfterFix, path, err)
	}
	change := &Change{Kind: KindAccessRules, Path: path, Rules: ruleIDs(rows), Notes: notes, Content: content}
	if len(models) == 1 {
		change.Model = models[0]
	}
	return change, f.apply(ctx, change)
}

func appendRows(src []byte, rows []*graph.AccessRule) ([]byte, error) {
	buffer := bytes.NewBuffer(append([]byte{}, src...))
	if len(bytes.TrimSpace(src)) == 0 {
		buffer.Reset()
	} else if src[len(src)-1] != '\n' {
		buffer.WriteByte('\n')
	}
	writer := csv.NewWriter(buffer)
	if buffer.Len() == 0 {
		if err := writer.Write(security.Header); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		if err := writer.Write(security.Row(row)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to render access rules: %w", err)
	}
	return buffer.Bytes(), nil
}

func ruleIDs(rows []*graph.AccessRule) []string {
	result := make([]string, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.ID)
	}
	return result
}
