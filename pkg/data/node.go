package data

import (
	"net/url"
	"strconv"
)

// Tag classifies the value held by a Node.
type Tag string

const (
	TagString    Tag = "string"
	TagInteger   Tag = "integer"
	TagFloat     Tag = "float"
	TagBoolean   Tag = "boolean"
	TagResource  Tag = "resource"
	TagURL       Tag = "url"
	TagContainer Tag = "container"
	TagOpaque    Tag = "opaque"
)

// IsScalar reports whether values of this tag render as a single scalar.
func (t Tag) IsScalar() bool {
	switch t {
	case TagString, TagInteger, TagFloat, TagBoolean, TagURL, TagOpaque:
		return true
	}
	return false
}

// Node is a single typed value stored at one key of a Container.
//
// The owner is a plain back reference: a Node never keeps its Container
// alive on its own and removing a Node from its owner clears it.
type Node struct {
	tag   Tag
	key   Key
	value any
	// original is the object an Opaque node was stringified from.
	original any
	owner    *Container
}

// Tag returns the type tag.
func (n *Node) Tag() Tag {
	return n.tag
}

// Key returns the key the node is stored under.
func (n *Node) Key() Key {
	return n.key
}

// Owner returns the container holding the node, or nil once removed.
func (n *Node) Owner() *Container {
	return n.owner
}

// Value returns the stored value: string, int64, float64, bool, Resource,
// *url.URL, *Container, or the string form of an Opaque value.
func (n *Node) Value() any {
	return n.value
}

// Original returns the object an Opaque node was built from, and the stored
// value for every other tag.
func (n *Node) Original() any {
	if n.tag == TagOpaque {
		return n.original
	}
	return n.value
}

// Unwrap returns the plain value of the node. Nested containers unwrap to
// the resource they are bound to, or to their ToArray form; URLs unwrap to
// their string form.
func (n *Node) Unwrap() any {
	switch n.tag {
	case TagContainer:
		c := n.value.(*Container)
		if c.source != nil {
			return c.source
		}
		return c.ToArray()
	case TagURL:
		return n.value.(*url.URL).String()
	}
	return n.value
}

// Container returns the nested container of a Container node.
func (n *Node) Container() (*Container, bool) {
	c, ok := n.value.(*Container)
	return c, ok
}

// Resource returns the wrapped resource of a Resource node, or the resource a
// nested container is bound to.
func (n *Node) Resource() (Resource, bool) {
	switch v := n.value.(type) {
	case Resource:
		return v, true
	case *Container:
		if v.source != nil {
			return v.source, true
		}
	}
	return nil, false
}

// Int returns the value of an Integer node.
func (n *Node) Int() (int64, bool) {
	i, ok := n.value.(int64)
	return i, ok
}

// Float returns the numeric value of an Integer or Float node.
func (n *Node) Float() (float64, bool) {
	switch v := n.value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool returns the value of a Boolean node.
func (n *Node) Bool() (bool, bool) {
	b, ok := n.value.(bool)
	return b, ok
}

// String returns the textual form of the node. Containers render through
// GetString and resources through their identity.
func (n *Node) String() string {
	switch v := n.value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case *url.URL:
		return v.String()
	case *Container:
		s, _ := v.GetString()
		return s
	case Resource:
		return v.Identity().String()
	}
	return ""
}

// isEmpty reports whether the unwrapped value counts as empty when
// rendering: an empty string or an empty nested container.
func (n *Node) isEmpty() bool {
	switch v := n.value.(type) {
	case string:
		return v == ""
	case *Container:
		return v.source == nil && v.IsEmpty()
	}
	return false
}
