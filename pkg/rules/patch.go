package rules

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/rulekit/rulekit/pkg/data"
)

// applyPatch applies JSON Patch (RFC 6902) operations to the container at
// path and stores the result in its place. Containers that reference
// resources cannot be patched: their references would be lost.
func applyPatch(state *data.Container, path string, ops any) error {
	target, ok := state.ContainerAt(path)
	if !ok {
		return fmt.Errorf("no container at %q", path)
	}
	if holdsResource(target) {
		return fmt.Errorf("container at %q references resources", path)
	}

	rawOps, err := json.Marshal(plainValue(ops))
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(rawOps)
	if err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}
	doc, err := json.Marshal(target.ToArray())
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return fmt.Errorf("failed to patch %q: %w", path, err)
	}

	var v any
	if err := json.Unmarshal(patched, &v); err != nil {
		return fmt.Errorf("failed to decode patched %q: %w", path, err)
	}
	return state.SetPath(path, v)
}

func holdsResource(c *data.Container) bool {
	for _, n := range c.All() {
		if _, ok := n.Resource(); ok {
			return true
		}
		if child, ok := n.Container(); ok && holdsResource(child) {
			return true
		}
	}
	return false
}
