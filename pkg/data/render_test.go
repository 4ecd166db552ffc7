package data

import (
	"reflect"
	"testing"
)

func TestGetString(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *Container
		want  string
	}{
		{
			name:  "empty",
			build: func(t *testing.T) *Container { return New() },
			want:  "",
		},
		{
			name: "sequence",
			build: func(t *testing.T) *Container {
				c := New()
				mustPush(t, c, "a")
				mustPush(t, c, 2)
				return c
			},
			want: "- a\n- 2\n",
		},
		{
			name: "named keys equal to their values stay a list",
			build: func(t *testing.T) *Container {
				c := New()
				mustSet(t, c, Name("red"), "red")
				mustSet(t, c, Name("green"), "green")
				return c
			},
			want: "- red\n- green\n",
		},
		{
			name: "keyed map in insertion order",
			build: func(t *testing.T) *Container {
				c := New()
				mustSet(t, c, Name("title"), "Hello")
				mustSet(t, c, Name("count"), 3)
				mustSet(t, c, Name("ratio"), 1.5)
				return c
			},
			want: "title: Hello\ncount: 3\nratio: 1.5\n",
		},
		{
			name: "empty values are skipped",
			build: func(t *testing.T) *Container {
				c := New()
				mustSet(t, c, Name("blank"), "")
				mustSet(t, c, Name("nested"), New())
				mustSet(t, c, Name("b"), "x")
				return c
			},
			want: "b: x\n",
		},
		{
			name: "only empty values",
			build: func(t *testing.T) *Container {
				c := New()
				mustSet(t, c, Name("blank"), "")
				return c
			},
			want: "",
		},
		{
			name: "nested container",
			build: func(t *testing.T) *Container {
				c := New()
				tags := New()
				mustPush(t, tags, "go")
				mustPush(t, tags, "yaml")
				mustSet(t, c, Name("tags"), tags)
				return c
			},
			want: "tags:\n  - go\n  - yaml\n",
		},
		{
			name: "string representation wins",
			build: func(t *testing.T) *Container {
				c := New()
				mustPush(t, c, "ignored")
				c.SetStringRepresentation("hi")
				return c
			},
			want: "hi",
		},
		{
			name: "resource as identity",
			build: func(t *testing.T) *Container {
				c := New()
				mustSet(t, c, Name("ref"), &fakeResource{id: Identity{Kind: "article", UUID: "u1", ID: "5"}})
				return c
			},
			want: "ref:\n  kind: article\n  uuid: u1\n  id: 5\n",
		},
		{
			name: "structured resource as properties",
			build: func(t *testing.T) *Container {
				c := New()
				r := &structuredResource{
					fakeResource: fakeResource{id: Identity{Kind: "article", UUID: "u1"}},
					props:        []Property{{Name: "title", Value: "Hello"}},
				}
				mustPush(t, c, r)
				return c
			},
			want: "- title: Hello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build(t).GetString()
			if err != nil {
				t.Fatalf("GetString() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GetString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetStringUsesRendererForHints(t *testing.T) {
	r := &fakeRenderer{}
	c := New(WithRenderer(r))
	mustSet(t, c, Name("#type"), "markup")

	got, err := c.GetString()
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if got != "<rendered/>" {
		t.Errorf("GetString() = %q, want <rendered/>", got)
	}

	plain := New(WithRenderer(r))
	mustPush(t, plain, "a")
	if _, err := plain.GetString(); err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if r.calls != 1 {
		t.Errorf("renderer called %d times, want 1", r.calls)
	}
}

func TestToArray(t *testing.T) {
	c := New()
	mustSet(t, c, Name("title"), "T")
	list := New()
	mustPush(t, list, 1)
	mustPush(t, list, "two")
	mustSet(t, c, Name("list"), list)

	want := map[string]any{
		"title": "T",
		"list":  []any{int64(1), "two"},
	}
	if got := c.ToArray(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToArray() = %#v, want %#v", got, want)
	}

	reprOnly := New()
	reprOnly.SetStringRepresentation("x")
	if got, want := reprOnly.ToArray(), []any{"x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ToArray() = %#v, want %#v", got, want)
	}

	withBoth := New()
	mustPush(t, withBoth, "p")
	withBoth.SetStringRepresentation("x")
	if got, want := withBoth.ToArray(), []any{"p"}; !reflect.DeepEqual(got, want) {
		t.Errorf("properties should win over the string representation, got %#v", got)
	}

	if got, want := New().ToArray(), []any{}; !reflect.DeepEqual(got, want) {
		t.Errorf("empty ToArray() = %#v, want %#v", got, want)
	}
}

func TestToArrayIndexAndNameSharingAKey(t *testing.T) {
	for _, order := range []string{"name first", "index first"} {
		t.Run(order, func(t *testing.T) {
			c := New()
			if order == "name first" {
				mustSet(t, c, Name("0"), "named")
				mustPush(t, c, "listed")
			} else {
				mustPush(t, c, "listed")
				mustSet(t, c, Name("0"), "named")
			}
			if c.Len() != 2 {
				t.Fatalf("expected two properties, got %d", c.Len())
			}
			want := map[string]any{"0": "named"}
			if got := c.ToArray(); !reflect.DeepEqual(got, want) {
				t.Errorf("ToArray() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestNodeStringForms(t *testing.T) {
	c := New()
	mustSet(t, c, Name("f"), 2.5)
	mustSet(t, c, Name("b"), false)
	mustSet(t, c, Name("r"), &fakeResource{id: Identity{Kind: "article", UUID: "u1", Language: "en"}})

	tests := map[string]string{
		"f": "2.5",
		"b": "false",
		"r": "article:u1/en",
	}
	for k, want := range tests {
		n, _ := c.Get(Name(k))
		if got := n.String(); got != want {
			t.Errorf("%s.String() = %q, want %q", k, got, want)
		}
	}
}
