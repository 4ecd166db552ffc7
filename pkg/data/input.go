package data

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var errScalarDocument = errors.New("document is a bare scalar")

// FromUserInput builds a container from text typed by a user.
//
// Multi-line text is first parsed as YAML. When that fails, or yields a bare
// scalar, the text is read as a flat list of "key: value" tokens separated
// by commas or newlines. A token without a colon uses itself as both key and
// value. Tokens that are "[...]" placeholders are kept whole even when they
// contain a colon. A single token whose key equals its value becomes the
// container's string representation.
//
// FromUserInput never fails; malformed input degrades to the flat reading.
func FromUserInput(text string, opts ...Option) *Container {
	c := New(opts...)
	if strings.Contains(text, "\n") {
		err := c.parseStructured(text)
		if err == nil {
			return c
		}
		s := c.settings()
		s.logger.Debug().Err(err).Msg("Structured input rejected, falling back to flat parsing")
		s.metrics.RecordParseFallback()
		c.entries = nil
		clear(c.pos)
	}
	c.parseFlat(text)
	return c
}

func (c *Container) parseStructured(text string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return errScalarDocument
		}
		root = root.Content[0]
	}
	root = resolveAlias(root)
	if root.Kind != yaml.MappingNode && root.Kind != yaml.SequenceNode {
		return errScalarDocument
	}
	return c.setYAML(root)
}

// setYAML stores the entries of a YAML mapping or sequence node into c.
func (c *Container) setYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			v, err := yamlValue(item)
			if err != nil {
				return err
			}
			if isNil(v) {
				continue
			}
			if _, err := c.Push(v); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			k := resolveAlias(node.Content[i])
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping key is not a scalar", k.Line)
			}
			v, err := yamlValue(node.Content[i+1])
			if err != nil {
				return err
			}
			if err := c.Set(ParseKey(k.Value), v); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("line %d: expected a mapping or a sequence", node.Line)
	}
	return nil
}

// yamlValue converts a YAML node into a value accepted by Set: a scalar, nil
// for nulls, or a nested container.
func yamlValue(node *yaml.Node) (any, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case yaml.MappingNode, yaml.SequenceNode:
		child := New()
		if err := child.setYAML(node); err != nil {
			return nil, err
		}
		return child, nil
	}
	return nil, fmt.Errorf("line %d: unsupported node", node.Line)
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

type flatToken struct {
	key, value string
}

func (c *Container) parseFlat(text string) {
	tokens := make([]flatToken, 0)
	seen := make(map[string]int)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	for _, field := range fields {
		key, value, found := strings.Cut(field, ":")
		if !found {
			value = key
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if isPlaceholderSplit(key, value) {
			key = strings.TrimSpace(field)
			value = key
		}
		if key == "" || value == "" {
			continue
		}
		if i, ok := seen[key]; ok {
			tokens[i].value = value
			continue
		}
		seen[key] = len(tokens)
		tokens = append(tokens, flatToken{key: key, value: value})
	}

	if len(tokens) == 1 && tokens[0].key == tokens[0].value {
		c.SetStringRepresentation(tokens[0].value)
		return
	}
	for _, t := range tokens {
		// Strings always wrap, so Set cannot fail here.
		_ = c.Set(ParseKey(t.key), t.value)
	}
}

// isPlaceholderSplit reports whether a colon split cut through a "[...]"
// interpolation placeholder.
func isPlaceholderSplit(key, value string) bool {
	return (strings.HasPrefix(key, "[") && strings.HasSuffix(value, "]")) ||
		(strings.HasPrefix(value, "[") && strings.HasSuffix(key, "]"))
}
