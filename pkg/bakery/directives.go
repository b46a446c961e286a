package bakery

import (
	"path/filepath"
	"strings"
)

// WrapSlot is the name the wrap directive binds the rendered inner content
// to before rendering the layout.
const WrapSlot = "in"

// DefaultBindings returns the directives present in every context built by
// NewContext. Caller bindings with the same names shadow them.
func DefaultBindings() Bindings {
	return Bindings{
		"wrap": Func(wrap),
		"let":  Func(let),
	}
}

// wrap handles {{#wrap}}layout/path:inner{{/wrap}}. The inner text is
// rendered first and bound to WrapSlot; the layout is then rendered as a
// file against a child context carrying that binding.
func wrap(text string, s *Scope) (string, error) {
	rel, inner, ok := strings.Cut(text, ":")
	if !ok {
		return "", &CompositionError{Directive: "wrap", Message: "argument must be of the form <layout>:<content>"}
	}

	content, err := s.Render(inner, nil)
	if err != nil {
		return "", err
	}
	child := s.Extend(Bindings{WrapSlot: content})

	path := s.Resolve(rel)
	src, err := s.engine.loader.Load(path)
	if err != nil {
		return "", &CompositionError{Directive: "wrap", Path: path, Message: "cannot load layout", Err: err}
	}
	return s.engine.render(src, child, filepath.Dir(path))
}

// let handles {{#let}}name:value{{/let}} by binding name to the literal
// value in the live layer.
func let(text string, s *Scope) (string, error) {
	name, value, ok := strings.Cut(text, ":")
	if !ok {
		return "", &CompositionError{Directive: "let", Message: "argument must be of the form <name>:<value>"}
	}
	s.Set(name, value)
	return "", nil
}
