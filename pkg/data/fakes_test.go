package data

import (
	"context"
	"errors"
	"testing"
)

type txKey struct{}

// fakeResource records Save and Delete calls into a shared log.
type fakeResource struct {
	id        Identity
	saveErr   error
	deleteErr error
	panicOn   bool
	log       *[]string
	sawTx     bool
}

func (r *fakeResource) Identity() Identity {
	return r.id
}

func (r *fakeResource) Save(ctx context.Context) error {
	if r.panicOn {
		panic("save exploded")
	}
	r.sawTx = ctx.Value(txKey{}) != nil
	if r.log != nil {
		*r.log = append(*r.log, "save:"+r.id.ID)
	}
	return r.saveErr
}

func (r *fakeResource) Delete(ctx context.Context) error {
	r.sawTx = ctx.Value(txKey{}) != nil
	if r.log != nil {
		*r.log = append(*r.log, "delete:"+r.id.ID)
	}
	return r.deleteErr
}

// structuredResource is a resource that also exposes its fields.
type structuredResource struct {
	fakeResource
	props []Property
}

func (r *structuredResource) Properties() []Property {
	return r.props
}

type fakeTransactor struct {
	beginErr   error
	commitErr  error
	begun      int
	committed  int
	rolledBack int
}

func (f *fakeTransactor) Begin(ctx context.Context) (Transaction, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begun++
	return &fakeTx{parent: f, ctx: context.WithValue(ctx, txKey{}, f)}, nil
}

type fakeTx struct {
	parent *fakeTransactor
	ctx    context.Context
	done   bool
}

func (t *fakeTx) Context() context.Context {
	return t.ctx
}

func (t *fakeTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.parent.commitErr != nil {
		return t.parent.commitErr
	}
	t.parent.committed++
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.parent.rolledBack++
	return nil
}

// stringerValue is a type Wrap can only store as an Opaque node.
type stringerValue struct {
	name string
}

func (s stringerValue) String() string {
	return "stringer:" + s.name
}

type fakeRenderer struct {
	calls int
}

func (r *fakeRenderer) Render(c *Container) (string, error) {
	r.calls++
	n, _ := c.Get(Name("#markup"))
	if n == nil {
		return "<rendered/>", nil
	}
	return "<p>" + n.String() + "</p>", nil
}

func mustSet(t testing.TB, c *Container, k Key, v any) {
	t.Helper()
	if err := c.Set(k, v); err != nil {
		t.Fatalf("Set(%s) error = %v", k, err)
	}
}

func mustPush(t testing.TB, c *Container, v any) int {
	t.Helper()
	i, err := c.Push(v)
	if err != nil {
		t.Fatalf("Push(%v) error = %v", v, err)
	}
	return i
}

func keyStrings(c *Container) []string {
	keys := c.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// writableResource applies property changes made through bound containers.
type writableResource struct {
	structuredResource
}

func (r *writableResource) SetProperty(name string, value any) error {
	if name == "locked" {
		return errors.New("locked is read-only")
	}
	for i, p := range r.props {
		if p.Name == name {
			if value == nil {
				r.props = append(r.props[:i], r.props[i+1:]...)
			} else {
				r.props[i].Value = value
			}
			return nil
		}
	}
	if value != nil {
		r.props = append(r.props, Property{Name: name, Value: value})
	}
	return nil
}

func (r *writableResource) prop(name string) any {
	for _, p := range r.props {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}
