package data

import (
	"cmp"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"slices"
	"strconv"
)

// numericPattern accepts decimal numbers with an optional fraction and
// exponent; hex, "Inf" and "NaN" stay strings.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Wrap classifies raw and returns the Node that stores it under key.
//
// Booleans become Boolean nodes. Numbers and numeric strings become Integer
// nodes when they have no fractional part and Float nodes otherwise. A
// Resource is stored by reference, a URL as a URL node, and sequences, maps
// and Structured values as nested containers. Other values that implement
// fmt.Stringer are kept as Opaque nodes. Anything else, including nil,
// fails with an *UnsupportedValueTypeError; Container.Set treats nil as a
// removal before it ever reaches Wrap.
func Wrap(key Key, raw any) (*Node, error) {
	n := &Node{key: key}
	switch v := raw.(type) {
	case *Node:
		if v == nil {
			break
		}
		n.tag, n.value, n.original = v.tag, v.value, v.original
		return n, nil
	case *Container:
		if v == nil {
			break
		}
		n.tag, n.value = TagContainer, v
		return n, nil
	case Resource:
		if isNil(v) {
			break
		}
		n.tag, n.value = TagResource, v
		return n, nil
	case *url.URL:
		if v == nil {
			break
		}
		n.tag, n.value = TagURL, v
		return n, nil
	case url.URL:
		n.tag, n.value = TagURL, &v
		return n, nil
	case bool:
		n.tag, n.value = TagBoolean, v
		return n, nil
	case string:
		n.tag, n.value = classifyString(v)
		return n, nil
	case []byte:
		n.tag, n.value = classifyString(string(v))
		return n, nil
	case float32:
		n.tag, n.value = classifyFloat(float64(v))
		return n, nil
	case float64:
		n.tag, n.value = classifyFloat(v)
		return n, nil
	case Structured:
		if isNil(v) {
			break
		}
		child := New()
		for _, p := range v.Properties() {
			if err := child.Set(ParseKey(p.Name), p.Value); err != nil {
				return nil, err
			}
		}
		n.tag, n.value = TagContainer, child
		return n, nil
	}
	if raw == nil {
		return nil, &UnsupportedValueTypeError{Key: key, TypeName: "nil"}
	}
	return wrapReflect(n, raw)
}

func wrapReflect(n *Node, raw any) (*Node, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n.tag, n.value = TagInteger, rv.Int()
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			n.tag, n.value = TagFloat, float64(u)
			return n, nil
		}
		n.tag, n.value = TagInteger, int64(u)
		return n, nil
	case reflect.String:
		n.tag, n.value = classifyString(rv.String())
		return n, nil
	case reflect.Bool:
		n.tag, n.value = TagBoolean, rv.Bool()
		return n, nil
	case reflect.Float32, reflect.Float64:
		n.tag, n.value = classifyFloat(rv.Float())
		return n, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			break
		}
		child := New()
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if isNil(elem) {
				continue
			}
			if _, err := child.Push(elem); err != nil {
				return nil, err
			}
		}
		n.tag, n.value = TagContainer, child
		return n, nil
	case reflect.Map:
		if rv.IsNil() {
			break
		}
		child := New()
		for _, mk := range sortedMapKeys(rv) {
			if err := child.Set(mapKey(mk), rv.MapIndex(mk).Interface()); err != nil {
				return nil, err
			}
		}
		n.tag, n.value = TagContainer, child
		return n, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			break
		}
		if s, ok := raw.(fmt.Stringer); ok {
			n.tag, n.value, n.original = TagOpaque, s.String(), raw
			return n, nil
		}
		return Wrap(n.key, rv.Elem().Interface())
	}
	if s, ok := raw.(fmt.Stringer); ok {
		n.tag, n.value, n.original = TagOpaque, s.String(), raw
		return n, nil
	}
	return nil, &UnsupportedValueTypeError{Key: n.key, TypeName: fmt.Sprintf("%T", raw)}
}

// classifyString turns numeric strings into numbers.
func classifyString(s string) (Tag, any) {
	if !numericPattern.MatchString(s) {
		return TagString, s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return TagInteger, i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TagString, s
	}
	return classifyFloat(f)
}

// classifyFloat stores whole numbers that fit into an int64 as integers.
func classifyFloat(f float64) (Tag, any) {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return TagInteger, int64(f)
	}
	return TagFloat, f
}

// sortedMapKeys orders map keys so that list slots come first, in numeric
// order, followed by map slots in lexical order.
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		ka, kb := mapKey(a), mapKey(b)
		switch {
		case ka.IsIndex() && kb.IsIndex():
			return cmp.Compare(ka.index, kb.index)
		case ka.IsIndex():
			return -1
		case kb.IsIndex():
			return 1
		}
		return cmp.Compare(ka.name, kb.name)
	})
	return keys
}

func mapKey(k reflect.Value) Key {
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if k.Int() >= 0 {
			return Index(int(k.Int()))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Index(int(k.Uint()))
	case reflect.String:
		return ParseKey(k.String())
	}
	return Name(fmt.Sprint(k.Interface()))
}

// isNil reports whether v is nil or an interface holding a nil pointer, map,
// slice, channel or function.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
