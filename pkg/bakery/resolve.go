package bakery

import (
	"fmt"
	"strings"
)

// resolveBlock evaluates the body of a closed block according to the shape
// of the value bound to its name.
func (e *Engine) resolveBlock(name, body string, s *Scope) (string, error) {
	v, err := s.ctx.Lookup(name)
	if err != nil {
		return "", err
	}

	switch v := v.(type) {
	case []Bindings:
		return e.renderEach(body, s, len(v), func(i int) Bindings { return v[i] })
	case []map[string]any:
		return e.renderEach(body, s, len(v), func(i int) Bindings { return v[i] })
	case []any:
		items, err := asBindingsList(name, v)
		if err != nil {
			return "", err
		}
		return e.renderEach(body, s, len(items), func(i int) Bindings { return items[i] })
	case Func:
		return v(body, s)
	case func(string, *Scope) (string, error):
		return v(body, s)
	case bool:
		if !v {
			return "", nil
		}
		return e.render(body, s.ctx.Extend(nil), s.dir)
	case string:
		if v == "" {
			return "", nil
		}
		return e.render(body, s.ctx.Extend(nil), s.dir)
	default:
		return "", &InvalidBlockValueError{Block: name, Type: fmt.Sprintf("%T", v)}
	}
}

// renderEach renders body once per item, each time against a child of the
// live layer extended with that item's bindings.
func (e *Engine) renderEach(body string, s *Scope, n int, item func(int) Bindings) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		out, err := e.render(body, s.ctx.Extend(item(i)), s.dir)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// asBindingsList accepts the []any shape produced by decoders as long as
// every element is a mapping.
func asBindingsList(name string, list []any) ([]Bindings, error) {
	items := make([]Bindings, len(list))
	for i, el := range list {
		switch m := el.(type) {
		case Bindings:
			items[i] = m
		case map[string]any:
			items[i] = m
		default:
			return nil, &InvalidBlockValueError{Block: name, Type: fmt.Sprintf("[]any containing %T", el)}
		}
	}
	return items, nil
}

// display is the text a value substitutes as.
func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
