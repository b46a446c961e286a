package bakery

import "path/filepath"

// Engine renders templates. It holds only its Loader, so one Engine may
// serve concurrent renders as long as each render gets its own Context.
type Engine struct {
	loader Loader
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoader sets the Loader used by RenderFile and the wrap directive.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		if l != nil {
			e.loader = l
		}
	}
}

// New returns an Engine reading files from disk unless configured otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{loader: FileLoader{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Loader returns the engine's file loader.
func (e *Engine) Loader() Loader { return e.loader }

// Render renders src against ctx. Relative wrap paths resolve against the
// working directory. ctx is not modified; a nil ctx means NewContext(nil).
func (e *Engine) Render(src string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = NewContext(nil)
	}
	return e.render(src, ctx.Extend(nil), "")
}

// RenderFile loads the file at path and renders it against ctx. The file's
// directory becomes the base for relative wrap paths used in it and in
// anything it composes.
func (e *Engine) RenderFile(path string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = NewContext(nil)
	}
	return e.renderFile(path, ctx.Extend(nil))
}

var defaultEngine = New()

// Render renders src against NewContext(b) with the default engine.
func Render(src string, b Bindings) (string, error) {
	return defaultEngine.Render(src, NewContext(b))
}

// RenderFile renders the file at path against NewContext(b) with the
// default engine.
func RenderFile(path string, b Bindings) (string, error) {
	return defaultEngine.RenderFile(path, NewContext(b))
}

func (e *Engine) renderFile(path string, layer *Context) (string, error) {
	src, err := e.loader.Load(path)
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	return e.render(src, layer, filepath.Dir(path))
}

type openBlock struct {
	name      string
	span      int // index into the pending span list
	bodyStart int
}

// render is one scan pass over src. layer must be a context owned by this
// pass: block callables may mutate it through the Scope.
//
// At most one block is open per pass. Tags met while it is open are left
// alone and picked up when the block's body is rendered by its own pass.
func (e *Engine) render(src string, layer *Context, dir string) (string, error) {
	s := &Scope{ctx: layer, dir: dir, engine: e}

	var spans []span
	var open *openBlock

	for pos := 0; ; {
		tag, ok, err := findTag(src, pos)
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		pos = tag.End

		kind := tag.Kind()
		switch {
		case kind == TagClose:
			// stray or belongs to an outer block
			if open == nil || open.name != tag.Name() {
				continue
			}
			out, err := e.resolveBlock(open.name, src[open.bodyStart:tag.Start], s)
			if err != nil {
				return "", err
			}
			spans[open.span].end = tag.End
			spans[open.span].text = out
			open = nil

		case open != nil:
			continue

		case kind == TagOpen:
			spans = append(spans, span{start: tag.Start, end: tag.End})
			open = &openBlock{name: tag.Name(), span: len(spans) - 1, bodyStart: tag.End}

		case kind == TagOptional:
			v := layer.LookupOptional(tag.Name())
			spans = append(spans, span{start: tag.Start, end: tag.End, text: display(v)})

		default:
			v, err := layer.Lookup(tag.Name())
			if err != nil {
				return "", err
			}
			spans = append(spans, span{start: tag.Start, end: tag.End, text: display(v)})
		}
	}

	if open != nil {
		return "", &UnterminatedBlockError{
			Block: open.name,
			Pos:   positionAt(src, spans[open.span].start),
		}
	}
	return substitute(src, spans), nil
}
