package importer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/internal/loader"
)

// ToJSON returns raw unchanged when it is JSON and otherwise decodes it as
// YAML. Mapping key order is preserved so property order survives.
func ToJSON(raw []byte) ([]byte, error) {
	data, _, err := normalize(raw, loader.FormatUnknown)
	return data, err
}

// normalize converts raw to JSON. A JSON hint skips the YAML fallback so a
// broken .json file reports its JSON syntax error.
func normalize(raw []byte, hint loader.Format) ([]byte, loader.Format, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, hint, fmt.Errorf("importer: document is empty")
	}
	if hint != loader.FormatYAML && json.Valid(trimmed) {
		return trimmed, loader.FormatJSON, nil
	}
	if hint == loader.FormatJSON {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		return nil, hint, fmt.Errorf("importer: invalid JSON document: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(trimmed, &root); err != nil {
		return nil, loader.FormatYAML, fmt.Errorf("importer: document is neither JSON nor YAML: %w", err)
	}
	var buf bytes.Buffer
	if err := writeNode(&buf, &root); err != nil {
		return nil, loader.FormatYAML, err
	}
	return buf.Bytes(), loader.FormatYAML, nil
}

func writeNode(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, node.Content[0])
	case yaml.AliasNode:
		return writeNode(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return fmt.Errorf("importer: line %d: %w", node.Line, err)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("importer: line %d: %w", node.Line, err)
		}
		buf.Write(encoded)
		return nil
	default:
		return fmt.Errorf("importer: line %d: unsupported YAML node", node.Line)
	}
}
