package rules

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestScriptRunner(t *testing.T) {
	sr := &scriptRunner{timeout: time.Second, logger: zerolog.Nop()}
	input := map[string]any{
		"data": map[string]any{
			"title": "hello",
			"count": int64(2),
			"tags":  []any{"a", "b"},
		},
	}

	tests := []struct {
		name    string
		script  string
		want    map[string]any
		wantErr string
	}{
		{
			name:   "reads data",
			script: `title = data["title"].upper()`,
			want:   map[string]any{"title": "HELLO"},
		},
		{
			name: "numbers and lists",
			script: `
doubled = data["count"] * 2
ratio = data["count"] / 4
pairs = [(i, t) for i, t in enumerate(data["tags"])]
`,
			want: map[string]any{
				"doubled": int64(4),
				"ratio":   0.5,
				"pairs":   []any{[]any{int64(0), "a"}, []any{int64(1), "b"}},
			},
		},
		{
			name: "private names and functions are skipped",
			script: `
def _shout(s):
    return s.upper() + "!"

def helper():
    return 1

_tmp = 1
greeting = _shout(data["title"])
`,
			want: map[string]any{"greeting": "HELLO!"},
		},
		{
			name:   "structs",
			script: `meta = struct(author = "ann", draft = True)`,
			want: map[string]any{"meta": scriptDict{
				{Name: "author", Value: "ann"},
				{Name: "draft", Value: true},
			}},
		},
		{
			name:   "dicts keep insertion order",
			script: `d = {"z": 1, "a": [data["title"]]}`,
			want: map[string]any{"d": scriptDict{
				{Name: "z", Value: int64(1)},
				{Name: "a", Value: []any{"hello"}},
			}},
		},
		{
			name:    "dict keys must be strings",
			script:  `d = {1: "one"}`,
			wantErr: "is not a string",
		},
		{
			name:   "none",
			script: `removed = None`,
			want:   map[string]any{"removed": nil},
		},
		{
			name:    "runtime error",
			script:  `x = data["missing"]`,
			wantErr: "failed",
		},
		{
			name:    "syntax error",
			script:  `x = `,
			wantErr: "failed",
		},
		{
			name:    "unsupported output",
			script:  `r = range(3)`,
			wantErr: "failed to convert output r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sr.run(context.Background(), "test", tt.script, input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("run mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScriptRunnerTimeout(t *testing.T) {
	sr := &scriptRunner{timeout: 20 * time.Millisecond, logger: zerolog.Nop()}

	script := `
def spin():
    n = 0
    for i in range(1000000000):
        n += i
    return n

total = spin()
`
	start := time.Now()
	_, err := sr.run(context.Background(), "spin", script, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("expected cancellation error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("script was not interrupted in time")
	}
}
