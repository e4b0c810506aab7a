package security

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/viant/odoocheck/inspector/graph"
)

// Header is the column layout of ir.model.access.csv
var Header = []string{"id", "name", "model_id:id", "group_id:id", "perm_read", "perm_write", "perm_create", "perm_unlink"}

// ErrHeader is returned when the csv header does not define the access rule columns
var ErrHeader = errors.New("invalid access csv header")

// InspectFile reads access rules from an ir.model.access.csv file
func InspectFile(filename string) ([]*graph.AccessRule, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	rules, err := InspectSource(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}
	for _, rule := range rules {
		rule.File = filename
	}
	return rules, nil
}

// InspectSource reads access rules, columns are matched by header name
func InspectSource(src []byte) ([]*graph.AccessRule, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	columns := map[string]int{}
	for idx, name := range header {
		columns[strings.TrimSpace(name)] = idx
	}
	for _, required := range []string{"id", "model_id:id"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrHeader, required)
		}
	}
	var rules []*graph.AccessRule
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(header), len(record))
		}
		value := func(column string) string {
			if idx, ok := columns[column]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}
		rules = append(rules, &graph.AccessRule{
			ID:         value("id"),
			Name:       value("name"),
			ModelRef:   value("model_id:id"),
			GroupRef:   value("group_id:id"),
			PermRead:   value("perm_read") == "1",
			PermWrite:  value("perm_write") == "1",
			PermCreate: value("perm_create") == "1",
			PermUnlink: value("perm_unlink") == "1",
			Line:       line,
		})
	}
	return rules, nil
}

// ModelName strips the module prefix of a model reference (records_management.model_x -> model_x)
func ModelName(ref string) string {
	if idx := strings.LastIndexByte(ref, '.'); idx != -1 {
		return ref[idx+1:]
	}
	return ref
}

// Row renders an access rule as a csv row
func Row(rule *graph.AccessRule) []string {
	flag := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	return []string{rule.ID, rule.Name, rule.ModelRef, rule.GroupRef,
		flag(rule.PermRead), flag(rule.PermWrite), flag(rule.PermCreate), flag(rule.PermUnlink)}
}
