package data

import (
	"context"
	"iter"
	"slices"

	"github.com/rs/zerolog"

	"github.com/rulekit/rulekit/pkg/telemetry"
)

// Renderer turns a container carrying render hints (a "#type", "#theme" or
// other "#"-prefixed key) into text.
type Renderer interface {
	Render(c *Container) (string, error)
}

// settings holds the collaborators shared by a container tree. Nested
// containers inherit the settings of their nearest configured ancestor.
type settings struct {
	renderer    Renderer
	coordinator *Coordinator
	identity    IdentityPolicy
	logger      zerolog.Logger
	metrics     *telemetry.Metrics
}

func defaultSettings() *settings {
	return &settings{
		identity: DefaultIdentityPolicy(),
		logger:   zerolog.Nop(),
	}
}

// Option configures a Container.
type Option func(*settings)

// WithRenderer sets the renderer used by GetString for render hints.
func WithRenderer(r Renderer) Option {
	return func(s *settings) {
		s.renderer = r
	}
}

// WithCoordinator sets the coordinator used by SaveData and DeleteData.
func WithCoordinator(p *Coordinator) Option {
	return func(s *settings) {
		s.coordinator = p
	}
}

// WithIdentityPolicy sets how RemoveByValue compares resources.
func WithIdentityPolicy(p IdentityPolicy) Option {
	return func(s *settings) {
		s.identity = p
	}
}

// WithLogger sets the logger for parse fallbacks and persistence.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics records parse fallbacks.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// Container is an ordered mix of list slots and map slots holding typed
// values, plus an optional string representation.
//
// A Container is not safe for concurrent use. Each rule execution works on
// its own containers.
type Container struct {
	entries []*Node
	pos     map[Key]int

	repr    string
	hasRepr bool

	// parent is the node holding this container, nil for a root.
	parent *Node
	// source is the resource this container exposes the fields of.
	source Resource

	cfg *settings
}

// New returns an empty container.
func New(opts ...Option) *Container {
	c := &Container{pos: make(map[Key]int)}
	if len(opts) > 0 {
		c.cfg = defaultSettings()
		for _, opt := range opts {
			opt(c.cfg)
		}
	}
	return c
}

// FromValue returns a container built from raw. Sequences and maps become
// the container's properties; any other value is stored at index 0.
//
// A *Container is returned as is when no options are given. With options,
// the result is a copy configured by them and raw is left untouched.
func FromValue(raw any, opts ...Option) (*Container, error) {
	if rc, ok := raw.(*Container); ok && rc != nil {
		if len(opts) == 0 {
			return rc, nil
		}
		return rc.copyWith(opts...)
	}
	c := New(opts...)
	if isNil(raw) {
		return c, nil
	}
	n, err := Wrap(Index(0), raw)
	if err != nil {
		return nil, err
	}
	if child, ok := n.value.(*Container); ok {
		c.adopt(child)
		return c, nil
	}
	c.put(n)
	return c, nil
}

// FromResource returns a container exposing the properties of r. Resources
// reached through the container's properties resolve to r when persisting.
//
// When r is Writable, setting or removing a named property of the container
// updates r as well.
func FromResource(r Resource, opts ...Option) (*Container, error) {
	c := New(opts...)
	if s, ok := r.(Structured); ok {
		for _, p := range s.Properties() {
			if err := c.Set(ParseKey(p.Name), p.Value); err != nil {
				return nil, err
			}
		}
	}
	c.source = r
	return c, nil
}

// copyWith returns a copy of c configured by opts. Nested containers are
// copied from their plain form; resources are shared.
func (c *Container) copyWith(opts ...Option) (*Container, error) {
	out := New(opts...)
	out.repr, out.hasRepr = c.repr, c.hasRepr
	out.source = c.source
	for _, n := range c.entries {
		cp, err := Wrap(n.key, n.Unwrap())
		if err != nil {
			return nil, err
		}
		out.put(cp)
	}
	return out, nil
}

// adopt moves the properties and string representation of other into c.
func (c *Container) adopt(other *Container) {
	c.repr, c.hasRepr = other.repr, other.hasRepr
	for _, n := range other.entries {
		c.put(n)
	}
	other.entries = nil
	other.pos = make(map[Key]int)
}

func (c *Container) settings() *settings {
	for x := c; x != nil; x = x.Parent() {
		if x.cfg != nil {
			return x.cfg
		}
	}
	return defaultSettings()
}

// Parent returns the container this one is nested in, or nil for a root.
func (c *Container) Parent() *Container {
	if c.parent == nil {
		return nil
	}
	return c.parent.owner
}

// ParentNode returns the node this container is stored in, or nil for a root.
func (c *Container) ParentNode() *Node {
	return c.parent
}

// Source returns the resource this container is bound to, if any.
func (c *Container) Source() Resource {
	return c.source
}

// Len returns the number of properties.
func (c *Container) Len() int {
	return len(c.entries)
}

// IsEmpty reports whether the container has neither properties nor a string
// representation.
func (c *Container) IsEmpty() bool {
	return len(c.entries) == 0 && !c.hasRepr
}

// SetStringRepresentation sets the scalar override used in scalar contexts.
func (c *Container) SetStringRepresentation(s string) {
	c.repr, c.hasRepr = s, true
}

// ClearStringRepresentation removes the scalar override.
func (c *Container) ClearStringRepresentation() {
	c.repr, c.hasRepr = "", false
}

// StringRepresentation returns the scalar override, if set.
func (c *Container) StringRepresentation() (string, bool) {
	return c.repr, c.hasRepr
}

// Keys returns the keys in storage order.
func (c *Container) Keys() []Key {
	keys := make([]Key, len(c.entries))
	for i, n := range c.entries {
		keys[i] = n.key
	}
	return keys
}

// All iterates over the properties in storage order.
func (c *Container) All() iter.Seq2[Key, *Node] {
	return func(yield func(Key, *Node) bool) {
		for _, n := range slices.Clone(c.entries) {
			if !yield(n.key, n) {
				return
			}
		}
	}
}

// Get returns the node stored at k.
func (c *Container) Get(k Key) (*Node, bool) {
	i, ok := c.pos[k]
	if !ok {
		return nil, false
	}
	return c.entries[i], true
}

// Has reports whether a property is stored at k.
func (c *Container) Has(k Key) bool {
	_, ok := c.pos[k]
	return ok
}

// Set stores value at k, overwriting any previous value.
//
// A nil value removes k. AppendKey always appends a new list slot.
// RemoveKey removes the first property equal to value, or the last property
// when value is nil. A list key past the end of the list appends at the
// next free slot, so list keys stay contiguous.
func (c *Container) Set(k Key, value any) error {
	switch k {
	case RemoveKey:
		if isNil(value) {
			c.removeLast()
		} else {
			c.RemoveByValue(value)
		}
		return nil
	case AppendKey:
		if isNil(value) {
			return nil
		}
		_, err := c.Push(value)
		return err
	}

	if isNil(value) {
		if err := c.writeThrough(k, nil); err != nil {
			return err
		}
		c.RemoveByKey(k)
		return nil
	}
	if k.IsIndex() && (k.index < 0 || k.index >= c.nextIndex()) {
		_, err := c.Push(value)
		return err
	}

	n, err := Wrap(k, value)
	if err != nil {
		return err
	}
	if err := c.checkCycle(n); err != nil {
		return err
	}
	if err := c.writeThrough(k, n.Unwrap()); err != nil {
		return err
	}
	c.put(n)
	return nil
}

// Push appends value as a new trailing list slot and returns its index.
func (c *Container) Push(value any) (int, error) {
	i := c.nextIndex()
	n, err := Wrap(Index(i), value)
	if err != nil {
		return -1, err
	}
	if err := c.checkCycle(n); err != nil {
		return -1, err
	}
	c.put(n)
	return i, nil
}

// Unshift inserts value as list slot 0, moving every other list slot up by
// one. It returns 0.
func (c *Container) Unshift(value any) (int, error) {
	n, err := Wrap(Index(0), value)
	if err != nil {
		return -1, err
	}
	if err := c.checkCycle(n); err != nil {
		return -1, err
	}

	at := len(c.entries)
	for i, e := range c.entries {
		if e.key.IsIndex() {
			if i < at {
				at = i
			}
			e.key = Index(e.key.index + 1)
		}
	}
	c.attach(n)
	c.entries = slices.Insert(c.entries, at, n)
	c.reindex()
	return 0, nil
}

// Pop removes and returns the node at the highest list index.
func (c *Container) Pop() (*Node, bool) {
	next := c.nextIndex()
	if next == 0 {
		return nil, false
	}
	return c.RemoveByKey(Index(next - 1))
}

// Shift removes and returns the node at list index 0. The remaining list
// slots move down by one; map slots are never renumbered.
func (c *Container) Shift() (*Node, bool) {
	return c.RemoveByKey(Index(0))
}

// RemoveByKey removes and returns the node stored at k.
func (c *Container) RemoveByKey(k Key) (*Node, bool) {
	i, ok := c.pos[k]
	if !ok {
		return nil, false
	}
	n := c.entries[i]
	c.entries = slices.Delete(c.entries, i, i+1)
	c.detach(n)
	if k.IsIndex() {
		c.rekey(k.index)
	} else {
		c.reindex()
	}
	return n, true
}

// RemoveByValue removes and returns the first node, in storage order, that
// is value, equals value, or wraps a resource with the same identity as
// value under the container's IdentityPolicy.
func (c *Container) RemoveByValue(value any) (*Node, bool) {
	m := newMatcher(value, c.settings().identity)
	for _, n := range c.entries {
		if m.matches(n) {
			return c.RemoveByKey(n.key)
		}
	}
	return nil, false
}

// SaveData saves every resource the container aggregates in one transaction.
func (c *Container) SaveData(ctx context.Context) error {
	p := c.settings().coordinator
	if p == nil {
		return ErrNoCoordinator
	}
	return p.Save(ctx, c)
}

// DeleteData deletes every resource the container aggregates in one transaction.
func (c *Container) DeleteData(ctx context.Context) error {
	p := c.settings().coordinator
	if p == nil {
		return ErrNoCoordinator
	}
	return p.Delete(ctx, c)
}

// writeThrough forwards a change of a map slot to the bound resource.
func (c *Container) writeThrough(k Key, value any) error {
	w, ok := c.source.(Writable)
	if !ok || !k.named {
		return nil
	}
	return w.SetProperty(k.name, value)
}

// Sync writes the current state of c into the nearest Writable resource it
// was reached through, under the property that leads down to c. It does
// nothing for containers that are not below a resource.
func (c *Container) Sync() error {
	return syncUp(c)
}

// syncUp writes the state of c into the nearest bound ancestor, under the
// map slot that leads down to c.
func syncUp(c *Container) error {
	for x := c; x.parent != nil && x.parent.owner != nil; x = x.parent.owner {
		owner := x.parent.owner
		if _, ok := owner.source.(Writable); ok {
			return owner.writeThrough(x.parent.key, x.ToArray())
		}
	}
	return nil
}

func (c *Container) removeLast() {
	if len(c.entries) == 0 {
		return
	}
	c.RemoveByKey(c.entries[len(c.entries)-1].key)
}

// nextIndex returns the number of list slots, which is also the next free
// list index.
func (c *Container) nextIndex() int {
	count := 0
	for _, n := range c.entries {
		if n.key.IsIndex() {
			count++
		}
	}
	return count
}

// put stores n at its key, replacing a previous node in place.
func (c *Container) put(n *Node) {
	c.attach(n)
	if i, ok := c.pos[n.key]; ok {
		c.detach(c.entries[i])
		c.entries[i] = n
		return
	}
	c.pos[n.key] = len(c.entries)
	c.entries = append(c.entries, n)
}

func (c *Container) attach(n *Node) {
	n.owner = c
	if child, ok := n.value.(*Container); ok {
		child.parent = n
	}
}

func (c *Container) detach(n *Node) {
	n.owner = nil
	if child, ok := n.value.(*Container); ok && child.parent == n {
		child.parent = nil
	}
}

func (c *Container) checkCycle(n *Node) error {
	child, ok := n.value.(*Container)
	if !ok {
		return nil
	}
	for x := c; x != nil; x = x.Parent() {
		if x == child {
			return ErrCyclicContainer
		}
	}
	return nil
}

// rekey restores contiguous list keys after the slot at removed went away.
// Map slots keep their keys and move ahead of the list slots; list slots
// keep their relative order and are renumbered from removed onwards.
func (c *Container) rekey(removed int) {
	named := make([]*Node, 0, len(c.entries))
	seq := make([]*Node, 0, len(c.entries))
	for _, n := range c.entries {
		if n.key.IsIndex() {
			seq = append(seq, n)
		} else {
			named = append(named, n)
		}
	}
	slices.SortStableFunc(seq, func(a, b *Node) int {
		return a.key.index - b.key.index
	})
	for i, n := range seq[min(removed, len(seq)):] {
		n.key = Index(removed + i)
	}
	c.entries = append(named, seq...)
	c.reindex()
}

func (c *Container) reindex() {
	clear(c.pos)
	for i, n := range c.entries {
		c.pos[n.key] = i
	}
}
