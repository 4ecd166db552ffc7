package rules

import (
	"github.com/rulekit/rulekit/pkg/data"
)

// plainValue converts the ToArray form of a container into values Rego and
// Starlark accept. Resources become maps of their identity merged with
// their properties.
func plainValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plainValue(item)
		}
		return out
	case data.Identity:
		return identityMap(val)
	case data.Resource:
		out := identityMap(val.Identity())
		if s, ok := val.(data.Structured); ok {
			for _, p := range s.Properties() {
				if r, isResource := p.Value.(data.Resource); isResource {
					out[p.Name] = identityMap(r.Identity())
					continue
				}
				out[p.Name] = plainValue(p.Value)
			}
		}
		return out
	case data.Structured:
		out := make(map[string]any)
		for _, p := range val.Properties() {
			out[p.Name] = plainValue(p.Value)
		}
		return out
	}
	return v
}

func identityMap(id data.Identity) map[string]any {
	out := map[string]any{
		"kind": id.Kind,
		"uuid": id.UUID,
		"id":   id.ID,
	}
	if id.Revisionable {
		out["revision"] = id.Revision
	}
	out["language"] = id.Language
	return out
}
