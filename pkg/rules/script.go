package rules

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/rulekit/rulekit/pkg/data"
)

// scriptRunner executes the Starlark source of script actions.
type scriptRunner struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// scriptDict is a Starlark dict or struct returned by a script. It keeps
// the order the script built it in when stored into a container.
type scriptDict []data.Property

// Properties implements data.Structured.
func (d scriptDict) Properties() []data.Property {
	return d
}

// run executes script with input as predeclared globals and returns the
// globals it exports. Names starting with "_" and function definitions are
// not exported. The script is cancelled after the runner's timeout or when
// ctx is done.
func (sr *scriptRunner) run(ctx context.Context, name, script string, input map[string]any) (map[string]any, error) {
	if sr.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sr.timeout)
		defer cancel()
	}

	predeclared := starlark.StringDict{"struct": starlarkstruct.Default}
	for key, val := range input {
		sv, err := toStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = sv
	}

	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			sr.logger.Debug().Str("script", name).Msg(msg)
		},
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	globals, err := starlark.ExecFile(thread, name+".star", script, predeclared)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("script %s cancelled: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("script %s failed: %w", name, err)
	}

	output := make(map[string]any, len(globals))
	for _, key := range slices.Sorted(maps.Keys(globals)) {
		val := globals[key]
		if key[0] == '_' || isCallable(val) {
			continue
		}
		v, err := fromStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert output %s: %w", key, err)
		}
		output[key] = v
	}
	return output, nil
}

func isCallable(v starlark.Value) bool {
	switch v.(type) {
	case *starlark.Function, *starlark.Builtin:
		return true
	}
	return false
}

// toStarlark converts the plain form of container data. Map keys are
// inserted in sorted order.
func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, k := range slices.Sorted(maps.Keys(val)) {
			sv, err := toStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}
	return nil, fmt.Errorf("unsupported type: %T", v)
}

// fromStarlark converts a script value into a value a container stores.
// Lists and tuples become []any, dicts and structs a scriptDict.
func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", val.String())
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		return fromSequence(val, val.Len())
	case starlark.Tuple:
		return fromSequence(val, val.Len())
	case *starlark.Dict:
		out := make(scriptDict, 0, val.Len())
		for _, item := range val.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string", item[0].String())
			}
			value, err := fromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			out = append(out, data.Property{Name: key, Value: value})
		}
		return out, nil
	case *starlarkstruct.Struct:
		names := val.AttrNames()
		out := make(scriptDict, 0, len(names))
		for _, name := range names {
			attr, err := val.Attr(name)
			if err != nil {
				return nil, err
			}
			value, err := fromStarlark(attr)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			out = append(out, data.Property{Name: name, Value: value})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
}

func fromSequence(seq starlark.Iterable, n int) ([]any, error) {
	out := make([]any, 0, n)
	it := seq.Iterate()
	defer it.Done()
	var x starlark.Value
	for it.Next(&x) {
		item, err := fromStarlark(x)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
