package data

import (
	"fmt"
	"strings"
)

// PathSeparator separates the keys of a property path.
const PathSeparator = "."

// SplitPath turns "a.b.0" into its keys.
func SplitPath(path string) []Key {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, PathSeparator)
	keys := make([]Key, len(parts))
	for i, p := range parts {
		keys[i] = ParseKey(p)
	}
	return keys
}

// GetPath follows a dotted property path through nested containers. Bound
// resources are entered through their properties. Containers found below a
// resource are copies of its property values: edit them with SetPath, or
// call Sync after changing them in place.
func (c *Container) GetPath(path string) (*Node, bool) {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return nil, false
	}
	cur := c
	for i, k := range keys {
		n, ok := cur.Get(k)
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return n, true
		}
		next, ok := n.Container()
		if !ok {
			next, ok = resourceView(n)
		}
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// resourceView returns a container over the properties of the resource held
// by n. Views of Writable resources are linked to n, so Sync on a container
// reached through them writes back to the resource.
func resourceView(n *Node) (*Container, bool) {
	if view, ok := writableView(n); ok {
		return view, true
	}
	r, ok := n.Resource()
	if !ok {
		return nil, false
	}
	view, err := FromResource(r)
	if err != nil {
		return nil, false
	}
	return view, true
}

// ContainerAt returns the container at path, the receiver itself for "".
func (c *Container) ContainerAt(path string) (*Container, bool) {
	if path == "" {
		return c, true
	}
	n, ok := c.GetPath(path)
	if !ok {
		return nil, false
	}
	return n.Container()
}

// SetPath stores value at a dotted property path, creating intermediate
// containers as needed. A nil value removes the last key.
func (c *Container) SetPath(path string, value any) error {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return fmt.Errorf("empty property path")
	}
	cur := c
	for _, k := range keys[:len(keys)-1] {
		n, ok := cur.Get(k)
		if !ok {
			if isNil(value) {
				return nil
			}
			if err := cur.Set(k, New()); err != nil {
				return fmt.Errorf("failed to create %q in %q: %w", k.String(), path, err)
			}
			if k.IsIndex() {
				k = Index(cur.nextIndex() - 1)
			}
			n, _ = cur.Get(k)
		}
		next, ok := n.Container()
		if !ok {
			next, ok = writableView(n)
		}
		if !ok {
			return fmt.Errorf("property %q in %q is a %s, not a container", k.String(), path, n.Tag())
		}
		cur = next
	}
	if err := cur.Set(keys[len(keys)-1], value); err != nil {
		return err
	}
	if cur.source == nil {
		return syncUp(cur)
	}
	return nil
}

// writableView binds a temporary container to the Writable resource held by
// n, so that path writes reach the resource.
func writableView(n *Node) (*Container, bool) {
	r, ok := n.Resource()
	if !ok {
		return nil, false
	}
	if _, ok := r.(Writable); !ok {
		return nil, false
	}
	view, err := FromResource(r)
	if err != nil {
		return nil, false
	}
	view.parent = n
	return view, true
}
