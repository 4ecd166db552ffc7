package data

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestFromUserInputFlat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
		repr  string
	}{
		{name: "single bare token", input: "hello", want: []any{"hello"}, repr: "hello"},
		{name: "single padded token", input: "  hello  ", want: []any{"hello"}, repr: "hello"},
		{name: "pairs", input: "a: 1, b: two", want: map[string]any{"a": int64(1), "b": "two"}},
		{name: "bare tokens", input: "red, green", want: map[string]any{"red": "red", "green": "green"}},
		{name: "index keys", input: "0: a, 1: b", want: []any{"a", "b"}},
		{name: "only the first colon splits", input: "url: http://example.com", want: map[string]any{"url": "http://example.com"}},
		{name: "later duplicates win", input: "a: 1, a: 2", want: map[string]any{"a": int64(2)}},
		{name: "empty sides dropped", input: "a: , : b, c", want: []any{"c"}, repr: "c"},
		{name: "placeholder kept whole", input: "[node:title]", want: []any{"[node:title]"}, repr: "[node:title]"},
		{
			name:  "placeholder value",
			input: "title: [node:title], x: 1",
			want:  map[string]any{"title": "[node:title]", "x": int64(1)},
		},
		{name: "empty input", input: "", want: []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromUserInput(tt.input)
			if diff := cmp.Diff(tt.want, c.ToArray()); diff != "" {
				t.Errorf("ToArray() mismatch (-want +got):\n%s", diff)
			}
			repr, ok := c.StringRepresentation()
			if tt.repr != "" && (!ok || repr != tt.repr) {
				t.Errorf("StringRepresentation() = %q, %v, want %q", repr, ok, tt.repr)
			}
			if tt.repr == "" && ok {
				t.Errorf("unexpected string representation %q", repr)
			}
		})
	}
}

func TestFromUserInputStructured(t *testing.T) {
	c := FromUserInput("title: Hello\ntags:\n  - a\n  - b\npublished: true\n")

	want := map[string]any{
		"title":     "Hello",
		"tags":      []any{"a", "b"},
		"published": true,
	}
	if diff := cmp.Diff(want, c.ToArray()); diff != "" {
		t.Errorf("ToArray() mismatch (-want +got):\n%s", diff)
	}
	tags, ok := c.ContainerAt("tags")
	if !ok || tags.Parent() != c {
		t.Error("nested sequence should be a child container")
	}
}

func TestFromUserInputFallsBackToFlat(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	c := FromUserInput("a: b: c\nd", WithLogger(logger))
	want := map[string]any{"a": "b: c", "d": "d"}
	if diff := cmp.Diff(want, c.ToArray()); diff != "" {
		t.Errorf("ToArray() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "falling back") {
		t.Errorf("fallback was not logged: %q", buf.String())
	}
}

func TestFromUserInputBareScalarDocument(t *testing.T) {
	c := FromUserInput("hello\nworld")
	want := map[string]any{"hello": "hello", "world": "world"}
	if diff := cmp.Diff(want, c.ToArray()); diff != "" {
		t.Errorf("ToArray() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromUserInputRoundTrip(t *testing.T) {
	inputs := []string{
		"title: Hello\ncount: 3\n",
		"- a\n- b\n",
		"title: Hello\ntags:\n  - go\n  - yaml\n",
	}
	for _, in := range inputs {
		first := FromUserInput(in)
		text, err := first.GetString()
		if err != nil {
			t.Fatalf("GetString() error = %v", err)
		}
		if text != in {
			t.Errorf("GetString() = %q, want %q", text, in)
		}
		second := FromUserInput(text)
		if diff := cmp.Diff(first.ToArray(), second.ToArray()); diff != "" {
			t.Errorf("round trip changed %q (-first +second):\n%s", in, diff)
		}
	}
}
