package data

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestContainerSetGet(t *testing.T) {
	c := New()
	mustSet(t, c, Name("title"), "Hello")
	mustSet(t, c, Name("count"), 3)
	mustSet(t, c, Name("ratio"), "0.25")
	mustSet(t, c, Name("published"), true)

	tests := []struct {
		key  string
		tag  Tag
		want any
	}{
		{key: "title", tag: TagString, want: "Hello"},
		{key: "count", tag: TagInteger, want: int64(3)},
		{key: "ratio", tag: TagFloat, want: 0.25},
		{key: "published", tag: TagBoolean, want: true},
	}
	for _, tt := range tests {
		n, ok := c.Get(Name(tt.key))
		if !ok {
			t.Fatalf("Get(%q) missing", tt.key)
		}
		if n.Tag() != tt.tag {
			t.Errorf("Get(%q).Tag() = %s, want %s", tt.key, n.Tag(), tt.tag)
		}
		if n.Value() != tt.want {
			t.Errorf("Get(%q).Value() = %#v, want %#v", tt.key, n.Value(), tt.want)
		}
		if n.Owner() != c {
			t.Errorf("Get(%q).Owner() is not the container", tt.key)
		}
	}

	if _, ok := c.Get(Name("missing")); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestContainerSetNilRemoves(t *testing.T) {
	c := New()
	mustSet(t, c, Name("a"), 1)
	mustSet(t, c, Name("a"), nil)
	if c.Has(Name("a")) {
		t.Error("Set(nil) should remove the property")
	}
	if !c.IsEmpty() {
		t.Error("container should be empty")
	}
}

func TestContainerOverwriteKeepsPosition(t *testing.T) {
	c := New()
	mustSet(t, c, Name("a"), 1)
	mustSet(t, c, Name("b"), 2)
	mustSet(t, c, Name("a"), 3)

	if got, want := keyStrings(c), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if n, _ := c.Get(Name("a")); n.String() != "3" {
		t.Errorf("a = %s, want 3", n)
	}
}

func TestContainerIndexKeysStayContiguous(t *testing.T) {
	c := New()
	mustPush(t, c, "a")
	mustSet(t, c, Name("x"), "X")
	mustPush(t, c, "b")
	mustPush(t, c, "c")

	removed, ok := c.RemoveByKey(Index(1))
	if !ok || removed.String() != "b" {
		t.Fatalf("RemoveByKey(1) = %v, %v", removed, ok)
	}
	if removed.Owner() != nil {
		t.Error("removed node should have no owner")
	}

	if got, want := keyStrings(c), []string{"x", "0", "1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if n, _ := c.Get(Index(1)); n.String() != "c" {
		t.Errorf("index 1 = %s, want c", n)
	}
	if n, _ := c.Get(Name("x")); n.String() != "X" {
		t.Errorf("named key should keep its value, got %s", n)
	}
}

func TestContainerSetIndexPastEndAppends(t *testing.T) {
	c := New()
	mustPush(t, c, "a")
	mustSet(t, c, Index(7), "z")

	if c.Has(Index(7)) {
		t.Error("Index(7) should not exist")
	}
	if n, ok := c.Get(Index(1)); !ok || n.String() != "z" {
		t.Errorf("Get(1) = %v, %v, want z", n, ok)
	}

	mustSet(t, c, Index(0), "y")
	if n, _ := c.Get(Index(0)); n.String() != "y" {
		t.Errorf("Set(Index(0)) should overwrite, got %s", n)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestContainerPushPopIsLIFO(t *testing.T) {
	c := New()
	for i, v := range []string{"a", "b", "c"} {
		if got := mustPush(t, c, v); got != i {
			t.Errorf("Push(%s) = %d, want %d", v, got, i)
		}
	}
	for _, want := range []string{"c", "b", "a"} {
		n, ok := c.Pop()
		if !ok || n.String() != want {
			t.Fatalf("Pop() = %v, %v, want %s", n, ok, want)
		}
	}
	if n, ok := c.Pop(); ok || n != nil {
		t.Errorf("Pop() on empty = %v, %v", n, ok)
	}
}

func TestContainerShiftIsFIFO(t *testing.T) {
	c := New()
	mustSet(t, c, Name("keep"), "k")
	for _, v := range []string{"a", "b", "c"} {
		mustPush(t, c, v)
	}

	n, ok := c.Shift()
	if !ok || n.String() != "a" {
		t.Fatalf("Shift() = %v, %v, want a", n, ok)
	}
	if got, want := keyStrings(c), []string{"keep", "0", "1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if n, _ := c.Get(Index(0)); n.String() != "b" {
		t.Errorf("index 0 after Shift = %s, want b", n)
	}
}

func TestContainerUnshift(t *testing.T) {
	c := New()
	mustSet(t, c, Name("title"), "T")
	mustPush(t, c, "b")
	mustPush(t, c, "c")

	i, err := c.Unshift("a")
	if err != nil || i != 0 {
		t.Fatalf("Unshift() = %d, %v", i, err)
	}
	if got, want := keyStrings(c), []string{"title", "0", "1", "2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	want := map[string]any{"title": "T", "0": "a", "1": "b", "2": "c"}
	if got := c.ToArray(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToArray() = %#v, want %#v", got, want)
	}
}

func TestContainerMarkers(t *testing.T) {
	c := New()
	mustSet(t, c, AppendKey, "x")
	mustSet(t, c, AppendKey, "y")
	mustSet(t, c, AppendKey, nil)
	if got, want := keyStrings(c), []string{"0", "1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() after appends = %v, want %v", got, want)
	}

	mustSet(t, c, RemoveKey, "x")
	if n, _ := c.Get(Index(0)); c.Len() != 1 || n.String() != "y" {
		t.Fatalf("remove marker should drop x, have %v", c.ToArray())
	}

	mustSet(t, c, Name("k"), "v")
	mustSet(t, c, RemoveKey, nil)
	if c.Has(Name("k")) {
		t.Error("remove marker without value should drop the last property")
	}
	if c.Has(AppendKey) || c.Has(RemoveKey) {
		t.Error("markers must never be stored")
	}
}

func TestContainerRemoveByValue(t *testing.T) {
	t.Run("first match only", func(t *testing.T) {
		c := New()
		for _, v := range []string{"a", "b", "a"} {
			mustPush(t, c, v)
		}
		if _, ok := c.RemoveByValue("a"); !ok {
			t.Fatal("RemoveByValue(a) found nothing")
		}
		want := []any{"b", "a"}
		if got := c.ToArray(); !reflect.DeepEqual(got, want) {
			t.Errorf("ToArray() = %#v, want %#v", got, want)
		}
	})

	t.Run("numeric strings match numbers", func(t *testing.T) {
		c := New()
		mustPush(t, c, 1)
		if _, ok := c.RemoveByValue("1"); !ok {
			t.Error("RemoveByValue(\"1\") should match integer 1")
		}
	})

	t.Run("container by reference", func(t *testing.T) {
		c := New()
		child := New()
		mustPush(t, child, "inner")
		mustSet(t, c, Name("child"), child)
		if _, ok := c.RemoveByValue(child); !ok {
			t.Fatal("RemoveByValue(child) found nothing")
		}
		if child.Parent() != nil {
			t.Error("removed child should be detached")
		}
	})

	t.Run("absent", func(t *testing.T) {
		c := New()
		mustPush(t, c, "a")
		if n, ok := c.RemoveByValue("zzz"); ok || n != nil {
			t.Errorf("RemoveByValue(zzz) = %v, %v", n, ok)
		}
		if n, ok := c.RemoveByKey(Name("zzz")); ok || n != nil {
			t.Errorf("RemoveByKey(zzz) = %v, %v", n, ok)
		}
		if c.Len() != 1 {
			t.Errorf("Len() = %d, want 1", c.Len())
		}
	})
}

func TestContainerRejectsCycles(t *testing.T) {
	c := New()
	if err := c.Set(Name("self"), c); !errors.Is(err, ErrCyclicContainer) {
		t.Errorf("Set(self) error = %v, want ErrCyclicContainer", err)
	}

	outer := New()
	inner := New()
	mustSet(t, outer, Name("inner"), inner)
	if _, err := inner.Push(outer); !errors.Is(err, ErrCyclicContainer) {
		t.Errorf("Push(outer) error = %v, want ErrCyclicContainer", err)
	}
	if inner.Parent() != outer {
		t.Error("inner should be nested in outer")
	}
}

func TestContainerIsEmpty(t *testing.T) {
	c := New()
	if !c.IsEmpty() {
		t.Error("new container should be empty")
	}
	c.SetStringRepresentation("x")
	if c.IsEmpty() {
		t.Error("container with a string representation is not empty")
	}
	c.ClearStringRepresentation()
	mustPush(t, c, "a")
	if c.IsEmpty() {
		t.Error("container with a property is not empty")
	}
}

func TestFromValue(t *testing.T) {
	seq, err := FromValue([]string{"a", "b"})
	if err != nil {
		t.Fatalf("FromValue(slice) error = %v", err)
	}
	if got, want := seq.ToArray(), []any{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FromValue(slice).ToArray() = %#v, want %#v", got, want)
	}

	solo, err := FromValue("solo")
	if err != nil {
		t.Fatalf("FromValue(scalar) error = %v", err)
	}
	if n, ok := solo.Get(Index(0)); !ok || n.String() != "solo" {
		t.Errorf("FromValue(scalar) index 0 = %v, %v", n, ok)
	}

	m, err := FromValue(map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("FromValue(map) error = %v", err)
	}
	if n, _ := m.Get(Name("a")); n == nil || n.Value() != int64(1) {
		t.Errorf("FromValue(map) a = %v", n)
	}

	empty, err := FromValue(nil)
	if err != nil || !empty.IsEmpty() {
		t.Errorf("FromValue(nil) = %v, %v", empty, err)
	}

	if same, _ := FromValue(m); same != m {
		t.Error("FromValue(*Container) should return the container itself")
	}

	copied, err := FromValue(m, WithIdentityPolicy(IdentityPolicy{}))
	if err != nil {
		t.Fatalf("FromValue(*Container, opts) error = %v", err)
	}
	if copied == m {
		t.Error("FromValue(*Container, opts) should not return the caller's container")
	}
	if m.settings().identity != DefaultIdentityPolicy() {
		t.Error("FromValue(*Container, opts) changed the caller's settings")
	}
	if got, want := copied.ToArray(), m.ToArray(); !reflect.DeepEqual(got, want) {
		t.Errorf("copy ToArray() = %#v, want %#v", got, want)
	}
	if n, _ := m.Get(Name("a")); n == nil || n.Owner() != m {
		t.Error("FromValue(*Container, opts) moved nodes out of the caller's container")
	}

	if _, err := FromValue(make(chan int)); !errors.Is(err, ErrUnsupportedValueType) {
		t.Errorf("FromValue(chan) error = %v, want ErrUnsupportedValueType", err)
	}
}

func TestContainerAllStopsEarly(t *testing.T) {
	c := New()
	for _, v := range []string{"a", "b", "c"} {
		mustPush(t, c, v)
	}
	var seen []string
	for k, n := range c.All() {
		seen = append(seen, k.String()+"="+n.String())
		if len(seen) == 2 {
			break
		}
	}
	if want := []string{"0=a", "1=b"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("All() = %v, want %v", seen, want)
	}
}

func TestNestedContainersInheritSettings(t *testing.T) {
	r := &fakeRenderer{}
	root := New(WithRenderer(r))
	body := New()
	mustSet(t, body, Name("#markup"), "hi")
	mustSet(t, root, Name("body"), body)

	got, err := body.GetString()
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if got != "<p>hi</p>" || r.calls != 1 {
		t.Errorf("GetString() = %q after %d render calls", got, r.calls)
	}
}

func TestSaveDataWithoutCoordinator(t *testing.T) {
	c := New()
	mustPush(t, c, "a")
	if err := c.SaveData(context.Background()); !errors.Is(err, ErrNoCoordinator) {
		t.Errorf("SaveData() error = %v, want ErrNoCoordinator", err)
	}
	if err := c.DeleteData(context.Background()); !errors.Is(err, ErrNoCoordinator) {
		t.Errorf("DeleteData() error = %v, want ErrNoCoordinator", err)
	}
}
