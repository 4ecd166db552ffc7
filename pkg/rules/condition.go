package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/v1/rego"
)

const conditionQuery = "data.rulekit.condition.allow"

// conditions compiles Rego conditions once and caches them by source.
type conditions struct {
	mu       sync.Mutex
	prepared map[string]rego.PreparedEvalQuery
}

func newConditions() *conditions {
	return &conditions{prepared: make(map[string]rego.PreparedEvalQuery)}
}

// conditionModule wraps a condition body into a Rego module defining allow.
func conditionModule(body string) string {
	var b strings.Builder
	b.WriteString("package rulekit.condition\n\nallow if {\n")
	for line := range strings.SplitSeq(strings.TrimSpace(body), "\n") {
		b.WriteString("\t")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (c *conditions) prepare(ctx context.Context, body string) (rego.PreparedEvalQuery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q, ok := c.prepared[body]; ok {
		return q, nil
	}
	q, err := rego.New(
		rego.Module("condition.rego", conditionModule(body)),
		rego.Query(conditionQuery),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("failed to compile condition: %w", err)
	}
	c.prepared[body] = q
	return q, nil
}

// eval reports whether the condition holds for input. An empty condition
// always holds; an undefined result does not.
func (c *conditions) eval(ctx context.Context, body string, input any) (bool, error) {
	if strings.TrimSpace(body) == "" {
		return true, nil
	}
	q, err := c.prepare(ctx, body)
	if err != nil {
		return false, err
	}
	results, err := q.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("condition evaluation error: %w", err)
	}
	return results.Allowed(), nil
}
