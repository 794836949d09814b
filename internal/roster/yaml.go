package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML roster file. See ParseYAML for the format.
func LoadFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	r, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	return r, nil
}

// ParseYAML decodes a top-level mapping of player ID to display name,
// keeping the order of the document:
//
//	5f1c...: ToxicPlayer#BR1
//	a93e...: Clean#NA1
func ParseYAML(data []byte) (*Roster, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	r := New()
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return r, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return r, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: roster must be a mapping of player id to name", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: player id must be a scalar", key.Line)
		}
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: name of player %q must be a scalar", value.Line, key.Value)
		}
		name := value.Value
		if value.Tag == "!!null" {
			name = ""
		}
		r.Set(key.Value, name)
	}
	return r, nil
}
