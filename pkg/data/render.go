package data

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToArray recursively unwraps the container into plain Go values. A
// container holding only list slots becomes a []any ordered by index, any
// other container a map[string]any. A container with no properties but a
// string representation becomes a one-element []any holding that string.
//
// In the map form list slots are keyed by their decimal index, so Index(0)
// and Name("0") share the key "0"; the map slot wins.
func (c *Container) ToArray() any {
	if len(c.entries) == 0 {
		if c.hasRepr {
			return []any{c.repr}
		}
		return []any{}
	}
	if c.isSequence() {
		out := make([]any, len(c.entries))
		for _, n := range c.entries {
			out[n.key.index] = n.Unwrap()
		}
		return out
	}
	out := make(map[string]any, len(c.entries))
	for _, n := range c.entries {
		if n.key.IsIndex() {
			out[n.key.String()] = n.Unwrap()
		}
	}
	for _, n := range c.entries {
		if n.key.named {
			out[n.key.name] = n.Unwrap()
		}
	}
	return out
}

func (c *Container) isSequence() bool {
	for _, n := range c.entries {
		if !n.key.IsIndex() {
			return false
		}
	}
	return true
}

// IsRenderable reports whether the container carries render hints, i.e. at
// least one property key starting with "#".
func (c *Container) IsRenderable() bool {
	for _, n := range c.entries {
		if n.key.named && strings.HasPrefix(n.key.name, "#") {
			return true
		}
	}
	return false
}

// GetString returns the textual form of the container.
//
// The string representation wins when set. Containers carrying render hints
// go through the configured Renderer. Everything else is encoded as YAML:
// empty values are skipped, resources are written out as their properties,
// and the result is a plain list unless some map slot's key differs from its
// own value. An empty result is "".
func (c *Container) GetString() (string, error) {
	if c.hasRepr {
		return c.repr, nil
	}
	if c.IsRenderable() {
		if r := c.settings().renderer; r != nil {
			return r.Render(c)
		}
	}

	doc, err := c.printable()
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode container: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode container: %w", err)
	}
	return buf.String(), nil
}

// printable builds the YAML node GetString encodes, or nil when nothing is
// left after skipping empty values.
func (c *Container) printable() (*yaml.Node, error) {
	if len(c.entries) == 0 && c.hasRepr {
		return scalarNode(c.repr)
	}

	type item struct {
		key   Key
		value *yaml.Node
	}
	items := make([]item, 0, len(c.entries))
	keyed := false

	for _, n := range c.entries {
		if n.isEmpty() {
			continue
		}
		value, err := printableValue(n)
		if err != nil {
			return nil, err
		}
		if value == nil {
			continue
		}
		if n.key.named && (!n.tag.IsScalar() || n.key.name != n.String()) {
			keyed = true
		}
		items = append(items, item{key: n.key, value: value})
	}
	if len(items) == 0 {
		return nil, nil
	}

	if !keyed {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, it := range items {
			seq.Content = append(seq.Content, it.value)
		}
		return seq, nil
	}

	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, it := range items {
		var k *yaml.Node
		var err error
		if it.key.IsIndex() {
			k, err = scalarNode(it.key.index)
		} else {
			k, err = scalarNode(it.key.name)
		}
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, k, it.value)
	}
	return m, nil
}

func printableValue(n *Node) (*yaml.Node, error) {
	switch v := n.value.(type) {
	case *Container:
		if v.source != nil {
			return printableResource(v.source)
		}
		return v.printable()
	case Resource:
		return printableResource(v)
	}
	return scalarNode(n.Unwrap())
}

// printableResource converts a resource into its plain array form: its
// properties when it is Structured, its identity otherwise.
func printableResource(r Resource) (*yaml.Node, error) {
	var props []Property
	if s, ok := r.(Structured); ok {
		props = s.Properties()
	} else {
		props = identityProperties(r.Identity())
	}

	c := New()
	for _, p := range props {
		if nested, ok := p.Value.(Resource); ok {
			// Nested references print as identities, never recursively.
			p.Value = identityProperties(nested.Identity())
		}
		if err := c.Set(ParseKey(p.Name), p.Value); err != nil {
			return nil, err
		}
	}
	return c.printable()
}

func identityProperties(id Identity) propertyList {
	props := propertyList{
		{Name: "kind", Value: id.Kind},
		{Name: "uuid", Value: id.UUID},
		{Name: "id", Value: id.ID},
	}
	if id.Revisionable {
		props = append(props, Property{Name: "revision", Value: id.Revision})
	}
	return append(props, Property{Name: "language", Value: id.Language})
}

type propertyList []Property

func (p propertyList) Properties() []Property {
	return p
}

func scalarNode(v any) (*yaml.Node, error) {
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return n, nil
}
