package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// guards compiles the expr-lang "when" expressions of rules once and caches
// them by source.
type guards struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

func newGuards() *guards {
	return &guards{programs: make(map[string]*vm.Program)}
}

func (g *guards) compile(src string) (*vm.Program, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.programs[src]; ok {
		return p, nil
	}
	p, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile when expression: %w", err)
	}
	g.programs[src] = p
	return p, nil
}

// eval reports whether src holds with the container data bound to "input".
// An empty expression always holds.
func (g *guards) eval(src string, input any) (bool, error) {
	if strings.TrimSpace(src) == "" {
		return true, nil
	}
	p, err := g.compile(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(p, map[string]any{"input": input})
	if err != nil {
		return false, fmt.Errorf("when expression evaluation error: %w", err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("when expression returned %T, not a boolean", out)
	}
	return ok, nil
}
