package bakery

import (
	"maps"
	"path/filepath"
	"slices"
)

// Bindings maps variable names to values. A value is a string, a bool, a
// sequence of Bindings (one per loop iteration) or a Func.
type Bindings map[string]any

// Func is a block callable. It receives the raw, unrendered text between the
// block's tags and the live Scope of the render pass that found the block.
// Its result is used verbatim.
type Func func(text string, s *Scope) (string, error)

// Context is a variable table. A Context is never modified once it has been
// handed to the renderer; Extend derives a new one. The only way to change
// bindings in place is Scope.Set.
type Context struct {
	vars map[string]any
}

// NewContext returns a Context holding DefaultBindings overlaid with b.
func NewContext(b Bindings) *Context {
	defaults := DefaultBindings()
	vars := make(map[string]any, len(defaults)+len(b))
	maps.Copy(vars, defaults)
	maps.Copy(vars, b)
	return &Context{vars: vars}
}

// Extend returns a copy of c with b overlaid. c itself is left untouched.
func (c *Context) Extend(b Bindings) *Context {
	vars := make(map[string]any, len(c.vars)+len(b))
	maps.Copy(vars, c.vars)
	maps.Copy(vars, b)
	return &Context{vars: vars}
}

// Lookup returns the value bound to name, or an *UndefinedVariableError.
func (c *Context) Lookup(name string) (any, error) {
	v, ok := c.vars[name]
	if !ok {
		return nil, &UndefinedVariableError{Name: name}
	}
	return v, nil
}

// LookupOptional returns the value bound to name, or "" when it is unbound.
func (c *Context) LookupOptional(name string) any {
	if v, ok := c.vars[name]; ok {
		return v
	}
	return ""
}

// Has reports whether name is bound.
func (c *Context) Has(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// Names returns the bound names in sorted order.
func (c *Context) Names() []string {
	return slices.Sorted(maps.Keys(c.vars))
}

// Scope is the live state of one render pass: the context layer owned by
// that pass and the directory relative composition paths resolve against.
// Block callables receive the Scope of the pass that found them.
type Scope struct {
	ctx    *Context
	dir    string
	engine *Engine
}

// Context returns the live context layer of the pass.
func (s *Scope) Context() *Context { return s.ctx }

// Dir returns the resolution directory of the pass. It is empty for sources
// that did not come from a file, meaning the working directory.
func (s *Scope) Dir() string { return s.dir }

// Set binds name in the live context layer. The binding is visible to every
// tag scanned later in the same pass, and to nothing outside it.
func (s *Scope) Set(name string, value any) {
	s.ctx.vars[name] = value
}

// Extend derives a child context from the live layer.
func (s *Scope) Extend(b Bindings) *Context {
	return s.ctx.Extend(b)
}

// Resolve joins a relative path onto the pass's resolution directory.
func (s *Scope) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.dir, path)
}

// Render renders in-memory text against ctx (the live layer when nil). The
// resolution directory is inherited.
func (s *Scope) Render(text string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = s.ctx
	}
	return s.engine.render(text, ctx.Extend(nil), s.dir)
}

// RenderFile loads path, resolved against the pass's directory, and renders
// it against ctx (the live layer when nil). The file's directory becomes the
// resolution directory of the nested render.
func (s *Scope) RenderFile(path string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = s.ctx
	}
	return s.engine.renderFile(s.Resolve(path), ctx.Extend(nil))
}
