package bakery

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTemplate is matched by every error the renderer produces, so callers can
// tell template failures apart from I/O failures with errors.Is.
var ErrTemplate = errors.New("bakery: template error")

// Position locates an offset inside a template source.
type Position struct {
	Offset int // 0-based byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// String returns a string representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// positionAt converts a byte offset in src into a Position.
func positionAt(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndexByte(before, '\n')
	return Position{Offset: offset, Line: line, Column: col}
}

// MalformedTemplateError is returned when an opening delimiter has no
// closing delimiter after it.
type MalformedTemplateError struct {
	Pos Position
}

// Error implements the error interface.
func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("unterminated tag at %s: missing %q", e.Pos, closeDelim)
}

func (e *MalformedTemplateError) Is(target error) bool { return target == ErrTemplate }

// UnterminatedBlockError is returned when scanning reaches the end of the
// source with a block still open.
type UnterminatedBlockError struct {
	Block string
	Pos   Position // position of the opening tag
}

// Error implements the error interface.
func (e *UnterminatedBlockError) Error() string {
	return fmt.Sprintf("unterminated %q block opened at %s", e.Block, e.Pos)
}

func (e *UnterminatedBlockError) Is(target error) bool { return target == ErrTemplate }

// UndefinedVariableError is returned when a required substitution or a
// block name has no binding.
type UndefinedVariableError struct {
	Name string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

func (e *UndefinedVariableError) Is(target error) bool { return target == ErrTemplate }

// InvalidBlockValueError is returned when a block is bound to a value that is
// not a sequence, a callable, a bool or a string.
type InvalidBlockValueError struct {
	Block string
	Type  string
}

// Error implements the error interface.
func (e *InvalidBlockValueError) Error() string {
	return fmt.Sprintf("block %q is bound to a value of type %s", e.Block, e.Type)
}

func (e *InvalidBlockValueError) Is(target error) bool { return target == ErrTemplate }

// LoadError is returned when a template file cannot be read.
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load template %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// CompositionError is returned by the wrap and let directives when their
// argument text is malformed or a layout cannot be loaded.
type CompositionError struct {
	Directive string
	Path      string // layout path, empty when the argument itself was malformed
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *CompositionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Directive, e.Message)
	if e.Path != "" {
		fmt.Fprintf(&sb, " %q", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *CompositionError) Is(target error) bool { return target == ErrTemplate }

func (e *CompositionError) Unwrap() error { return e.Err }
