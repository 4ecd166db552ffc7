package rules

import (
	"context"
	"testing"
)

func TestGuards(t *testing.T) {
	input := map[string]any{
		"status": "draft",
		"count":  int64(3),
		"tags":   []any{"go", "rules"},
	}

	tests := []struct {
		name    string
		src     string
		want    bool
		wantErr bool
	}{
		{name: "empty", src: "  ", want: true},
		{name: "equal", src: `input.status == "draft"`, want: true},
		{name: "not equal", src: `input.status == "published"`, want: false},
		{name: "numbers", src: `input.count > 2 && input.count < 10`, want: true},
		{name: "membership", src: `"go" in input.tags`, want: true},
		{name: "builtin", src: `len(input.tags) == 3`, want: false},
		{name: "missing key", src: `input.author == nil`, want: true},
		{name: "syntax error", src: `input.status ==`, wantErr: true},
		{name: "not a boolean", src: `input.status`, wantErr: true},
	}

	g := newGuards()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.eval(tt.src, input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("eval(%q) error = %v, wantErr %v", tt.src, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("eval(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}

	if len(g.programs) != 7 {
		t.Errorf("expected 7 cached programs, got %d", len(g.programs))
	}
}

func TestExecuteRequiresWhenAndCondition(t *testing.T) {
	tests := []struct {
		name      string
		state     map[string]any
		wantSkip  bool
		wantTitle string
	}{
		{name: "both hold", state: map[string]any{"status": "draft", "count": 5}, wantTitle: "big draft"},
		{name: "when fails", state: map[string]any{"status": "draft", "count": 1}, wantSkip: true},
		{name: "condition fails", state: map[string]any{"status": "published", "count": 5}, wantSkip: true},
	}

	rule := mustRule(t, `
rules:
  - name: big-drafts
    condition: input.status == "draft"
    when: input.count >= 3
    actions:
      - action: data_set
        path: title
        value: big draft
`)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := mustState(t, tt.state)
			out, err := NewEngine().Execute(context.Background(), rule, state)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if out.Skipped != tt.wantSkip {
				t.Fatalf("Skipped = %v, want %v", out.Skipped, tt.wantSkip)
			}
			n, ok := state.GetPath("title")
			if tt.wantSkip {
				if ok {
					t.Errorf("skipped rule set title to %s", n.String())
				}
				return
			}
			if !ok || n.String() != tt.wantTitle {
				t.Errorf("title = %v, want %s", n, tt.wantTitle)
			}
		})
	}
}
