package data

import (
	"reflect"
	"testing"
)

func TestSetPathCreatesContainers(t *testing.T) {
	c := New()
	if err := c.SetPath("a.b.c", "x"); err != nil {
		t.Fatalf("SetPath() error = %v", err)
	}
	n, ok := c.GetPath("a.b.c")
	if !ok || n.String() != "x" {
		t.Fatalf("GetPath(a.b.c) = %v, %v", n, ok)
	}
	b, _ := c.ContainerAt("a.b")
	if b.Parent() == nil || b.Parent().Parent() != c {
		t.Error("intermediate containers should be linked to their parents")
	}

	if err := c.SetPath("list.0", "first"); err != nil {
		t.Fatalf("SetPath(list.0) error = %v", err)
	}
	if err := c.SetPath("list.5", "second"); err != nil {
		t.Fatalf("SetPath(list.5) error = %v", err)
	}
	list, _ := c.ContainerAt("list")
	if got, want := list.ToArray(), []any{"first", "second"}; !reflect.DeepEqual(got, want) {
		t.Errorf("list = %#v, want %#v", got, want)
	}
}

func TestSetPathErrors(t *testing.T) {
	c := New()
	mustSet(t, c, Name("title"), "T")

	if err := c.SetPath("title.sub", "x"); err == nil {
		t.Error("SetPath() through a scalar should fail")
	}
	if err := c.SetPath("", "x"); err == nil {
		t.Error("SetPath(\"\") should fail")
	}
	if err := c.SetPath("missing.key", nil); err != nil {
		t.Errorf("removing a missing path should be a no-op, got %v", err)
	}
	if c.Has(Name("missing")) {
		t.Error("removal must not create containers")
	}
}

func TestGetPath(t *testing.T) {
	c := New()
	r := &structuredResource{
		fakeResource: fakeResource{id: Identity{Kind: "article", UUID: "u1"}},
		props:        []Property{{Name: "title", Value: "Hello"}},
	}
	mustSet(t, c, Name("article"), r)
	mustSet(t, c, Name("n"), 1)

	if n, ok := c.GetPath("article.title"); !ok || n.String() != "Hello" {
		t.Errorf("GetPath(article.title) = %v, %v", n, ok)
	}
	if _, ok := c.GetPath("n.x"); ok {
		t.Error("GetPath() through a scalar should report absence")
	}
	if _, ok := c.GetPath("nope"); ok {
		t.Error("GetPath(nope) should report absence")
	}
	if _, ok := c.GetPath(""); ok {
		t.Error("GetPath(\"\") should report absence")
	}
	if got, ok := c.ContainerAt(""); !ok || got != c {
		t.Error("ContainerAt(\"\") should return the receiver")
	}
}

func TestBoundContainerWritesThrough(t *testing.T) {
	r := &writableResource{structuredResource{
		fakeResource: fakeResource{id: Identity{Kind: "article", UUID: "u1"}},
		props:        []Property{{Name: "title", Value: "Old"}, {Name: "locked", Value: "yes"}},
	}}
	view, err := FromResource(r)
	if err != nil {
		t.Fatalf("FromResource() error = %v", err)
	}

	mustSet(t, view, Name("title"), "New")
	if got := r.prop("title"); got != "New" {
		t.Errorf("title = %v, want New", got)
	}

	if err := view.Set(Name("locked"), "no"); err == nil {
		t.Error("a rejected write should fail")
	}
	if n, _ := view.Get(Name("locked")); n.String() != "yes" {
		t.Errorf("rejected write changed the container: %s", n)
	}

	mustSet(t, view, Name("title"), nil)
	if got := r.prop("title"); got != nil {
		t.Errorf("title = %v after removal, want nil", got)
	}
}

func TestSetPathReachesResources(t *testing.T) {
	r := &writableResource{structuredResource{
		fakeResource: fakeResource{id: Identity{Kind: "article", UUID: "u1"}},
		props:        []Property{{Name: "title", Value: "Old"}},
	}}
	c := New()
	mustSet(t, c, Name("article"), r)

	if err := c.SetPath("article.title", "New"); err != nil {
		t.Fatalf("SetPath(article.title) error = %v", err)
	}
	if got := r.prop("title"); got != "New" {
		t.Errorf("title = %v, want New", got)
	}

	if err := c.SetPath("article.tags.0", "go"); err != nil {
		t.Fatalf("SetPath(article.tags.0) error = %v", err)
	}
	if got, want := r.prop("tags"), []any{"go"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %#v, want %#v", got, want)
	}

	plain := &structuredResource{fakeResource: fakeResource{id: Identity{UUID: "u2"}}}
	mustSet(t, c, Name("plain"), plain)
	if err := c.SetPath("plain.title", "x"); err == nil {
		t.Error("SetPath() into a read-only resource should fail")
	}
}

func TestSyncWritesListsBackToResources(t *testing.T) {
	r := &writableResource{structuredResource{
		fakeResource: fakeResource{id: Identity{Kind: "article", UUID: "u1"}},
		props: []Property{
			{Name: "tags", Value: []any{"go"}},
			{Name: "meta", Value: map[string]any{"labels": []any{"a"}}},
		},
	}}
	c := New()
	mustSet(t, c, Name("article"), r)

	tags, ok := c.ContainerAt("article.tags")
	if !ok {
		t.Fatal("ContainerAt(article.tags) found nothing")
	}
	if _, err := tags.Push("news"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if got, want := r.prop("tags"), []any{"go"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tags changed before Sync: %#v", got)
	}
	if err := tags.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got, want := r.prop("tags"), []any{"go", "news"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %#v, want %#v", got, want)
	}

	labels, ok := c.ContainerAt("article.meta.labels")
	if !ok {
		t.Fatal("ContainerAt(article.meta.labels) found nothing")
	}
	labels.RemoveByValue("a")
	if err := labels.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	want := map[string]any{"labels": []any{}}
	if got := r.prop("meta"); !reflect.DeepEqual(got, want) {
		t.Errorf("meta = %#v, want %#v", got, want)
	}

	plain := New()
	mustSet(t, plain, Name("tags"), []any{"x"})
	list, _ := plain.ContainerAt("tags")
	if err := list.Sync(); err != nil {
		t.Errorf("Sync() outside a resource error = %v", err)
	}
}
