package rules

import (
	"regexp"

	"github.com/rulekit/rulekit/pkg/data"
)

var tokenPattern = regexp.MustCompile(`\[([^\[\]\s]+)\]`)

// substitute replaces [path] placeholders in the string arguments of v
// with the referenced values of state. A string that is exactly one
// placeholder takes the referenced value itself, so numbers and nested
// structures keep their type. Unknown paths are left untouched.
func substitute(state *data.Container, v any) any {
	switch val := v.(type) {
	case string:
		if m := tokenPattern.FindStringSubmatchIndex(val); m != nil && m[0] == 0 && m[1] == len(val) {
			if n, ok := state.GetPath(val[m[2]:m[3]]); ok {
				return n.Unwrap()
			}
			return val
		}
		return substituteString(state, val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = substitute(state, item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = substitute(state, item)
		}
		return out
	}
	return v
}

// substituteString replaces every placeholder of s with the string form of
// the referenced value.
func substituteString(state *data.Container, s string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		n, ok := state.GetPath(token[1 : len(token)-1])
		if !ok {
			return token
		}
		return n.String()
	})
}
