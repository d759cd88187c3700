package irtable

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML command table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	// An empty document never reaches UnmarshalYAML.
	if t.off == "" {
		return nil, ErrMissingOff
	}
	return &t, nil
}

// FromMap builds a table from a generic mapping, as produced by decoding a
// larger document into map[string]any.
func FromMap(m map[string]any) (*Table, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}
	return Parse(data)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Table) UnmarshalYAML(value *yaml.Node) error {
	value = resolve(value)
	if value.Kind != yaml.MappingNode {
		return shapeError("commands", value, "mapping")
	}

	out := Table{operations: make(map[string]Operation)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := normaliseName(value.Content[i].Value)
		node := value.Content[i+1]
		if _, dup := out.operations[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}

		switch key {
		case KeyOff, KeyIdle:
			code, err := decodeCode(key, node)
			if err != nil {
				return err
			}
			if key == KeyOff {
				out.off = code
			} else {
				out.idle = code
			}
			out.operations[key] = Operation{code: code}
		default:
			op, err := decodeOperation(key, node)
			if err != nil {
				return err
			}
			out.operations[key] = op
		}
	}

	if out.off == "" {
		return ErrMissingOff
	}
	*t = out
	return nil
}

func decodeOperation(name string, node *yaml.Node) (Operation, error) {
	node = resolve(node)
	switch node.Kind {
	case yaml.ScalarNode:
		code, err := decodeCode(name, node)
		return Operation{code: code}, err
	case yaml.MappingNode:
	default:
		return Operation{}, shapeError(name, node, "code or fan mapping")
	}

	fans := make(map[string]Fan, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := normaliseName(node.Content[i].Value)
		path := name + "/" + key
		if _, dup := fans[key]; dup {
			return Operation{}, fmt.Errorf("%w: %q", ErrDuplicateKey, path)
		}
		f, err := decodeFan(path, node.Content[i+1])
		if err != nil {
			return Operation{}, err
		}
		fans[key] = f
	}
	return Operation{fans: fans}, nil
}

func decodeFan(path string, node *yaml.Node) (Fan, error) {
	node = resolve(node)
	switch node.Kind {
	case yaml.ScalarNode:
		code, err := decodeCode(path, node)
		return Fan{code: code}, err
	case yaml.MappingNode:
	default:
		return Fan{}, shapeError(path, node, "code or temperature mapping")
	}

	temps := make(map[int]Code, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		raw := strings.TrimSpace(node.Content[i].Value)
		t, err := strconv.Atoi(raw)
		if err != nil {
			return Fan{}, fmt.Errorf("%w: %s: %q (line %d)",
				ErrInvalidTemperature, path, raw, node.Content[i].Line)
		}
		if _, dup := temps[t]; dup {
			return Fan{}, fmt.Errorf("%w: %s/%d", ErrDuplicateKey, path, t)
		}
		code, err := decodeCode(fmt.Sprintf("%s/%d", path, t), node.Content[i+1])
		if err != nil {
			return Fan{}, err
		}
		temps[t] = code
	}
	return Fan{temps: temps}, nil
}

func decodeCode(path string, node *yaml.Node) (Code, error) {
	node = resolve(node)
	if node.Kind != yaml.ScalarNode {
		return "", shapeError(path, node, "code")
	}
	if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
		return "", fmt.Errorf("%w: %s (line %d)", ErrEmptyCode, path, node.Line)
	}
	return Code(node.Value), nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		return resolve(node.Content[0])
	}
	return node
}

func normaliseName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func shapeError(path string, node *yaml.Node, want string) error {
	return fmt.Errorf("%w: %s: expected %s, got %s (line %d)",
		ErrInvalidShape, path, want, kindName(node.Kind), node.Line)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "nothing"
	}
}
