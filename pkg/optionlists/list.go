package optionlists

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one entry of a list. Records keep every attribute so selects can
// map them into sibling fields.
type Record = map[string]any

// Lists maps a list name to its records.
type Lists map[string][]Record

// Parse decodes a YAML (or JSON) document mapping list names to entries.
// Scalar entries become records carrying the scalar under valueField and
// labelField.
func Parse(data []byte, valueField, labelField string) (Lists, error) {
	if valueField == "" || labelField == "" {
		defaults := NewOptions()
		valueField, labelField = defaults.ValueField, defaults.LabelField
	}
	var raw map[string][]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("optionlists: decode: %w", err)
	}

	lists := make(Lists, len(raw))
	for name, entries := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("optionlists: list name is empty")
		}
		records := make([]Record, 0, len(entries))
		for idx, entry := range entries {
			switch v := entry.(type) {
			case map[string]any:
				records = append(records, v)
			case nil:
				return nil, fmt.Errorf("optionlists: %s[%d] is empty", name, idx)
			case []any:
				return nil, fmt.Errorf("optionlists: %s[%d] is a list", name, idx)
			default:
				text := fmt.Sprint(v)
				records = append(records, Record{valueField: text, labelField: text})
			}
		}
		lists[name] = records
	}
	return lists, nil
}

// LoadFile reads and parses a lists file.
func LoadFile(path string, valueField, labelField string) (Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("optionlists: read %s: %w", path, err)
	}
	return Parse(data, valueField, labelField)
}

// Names returns the list names.
func (l Lists) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	return names
}
