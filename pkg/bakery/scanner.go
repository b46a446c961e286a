package bakery

import "strings"

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// TagKind classifies a tag body by its lexical shape.
type TagKind int

const (
	TagPlain    TagKind = iota // {{name}}
	TagOptional                // {{name?}}
	TagOpen                    // {{#name}}
	TagClose                   // {{/name}}
)

func (k TagKind) String() string {
	switch k {
	case TagPlain:
		return "plain"
	case TagOptional:
		return "optional"
	case TagOpen:
		return "open"
	case TagClose:
		return "close"
	default:
		return "unknown"
	}
}

// Tag is one {{...}} occurrence, spanning src[Start:End].
type Tag struct {
	Start int
	End   int
	Body  string
}

// Kind reports the shape of the tag. Classification never looks at the
// context, only at the first and last byte of the body.
func (t Tag) Kind() TagKind {
	switch {
	case strings.HasPrefix(t.Body, "/"):
		return TagClose
	case strings.HasPrefix(t.Body, "#"):
		return TagOpen
	case strings.HasSuffix(t.Body, "?"):
		return TagOptional
	default:
		return TagPlain
	}
}

// Name returns the variable or block name carried by the tag.
func (t Tag) Name() string {
	switch t.Kind() {
	case TagClose, TagOpen:
		return t.Body[1:]
	case TagOptional:
		return t.Body[:len(t.Body)-1]
	default:
		return t.Body
	}
}

// findTag returns the first tag starting at or after from. The boolean is
// false when no further opening delimiter exists.
func findTag(src string, from int) (Tag, bool, error) {
	i := strings.Index(src[from:], openDelim)
	if i < 0 {
		return Tag{}, false, nil
	}
	start := from + i
	bodyStart := start + len(openDelim)
	j := strings.Index(src[bodyStart:], closeDelim)
	if j < 0 {
		return Tag{}, false, &MalformedTemplateError{Pos: positionAt(src, start)}
	}
	bodyEnd := bodyStart + j
	return Tag{
		Start: start,
		End:   bodyEnd + len(closeDelim),
		Body:  src[bodyStart:bodyEnd],
	}, true, nil
}
