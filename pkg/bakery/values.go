package bakery

import (
	"fmt"
	"strconv"
)

// NormalizeBindings converts decoder output (encoding/json, yaml) into the
// value shapes the renderer understands: numbers become strings, nil becomes
// "", and lists of mappings become []Bindings. Nested mappings outside a list
// and lists of scalars are rejected.
func NormalizeBindings(m map[string]any) (Bindings, error) {
	out := make(Bindings, len(m))
	for k, v := range m {
		nv, err := normalize(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalize(key string, v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string, bool, Func, func(string, *Scope) (string, error):
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []Bindings:
		return v, nil
	case []map[string]any:
		return normalizeList(key, len(v), func(i int) any { return v[i] })
	case []any:
		return normalizeList(key, len(v), func(i int) any { return v[i] })
	default:
		return nil, fmt.Errorf("bakery: %q: unsupported value of type %T", key, v)
	}
}

func normalizeList(key string, n int, el func(int) any) ([]Bindings, error) {
	items := make([]Bindings, n)
	for i := 0; i < n; i++ {
		m, ok := asStringMap(el(i))
		if !ok {
			return nil, fmt.Errorf("bakery: %q: list element %d is %T, not a mapping", key, i, el(i))
		}
		b, err := NormalizeBindings(m)
		if err != nil {
			return nil, err
		}
		items[i] = b
	}
	return items, nil
}

// asStringMap accepts the mapping types produced by encoding/json and
// gopkg.in/yaml.v2.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Bindings:
		return m, true
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
