package bakery

import "strings"

// span replaces src[start:end] with text.
type span struct {
	start int
	end   int
	text  string
}

// substitute splices spans into src in one pass. spans are sorted by start
// and never overlap.
func substitute(src string, spans []span) string {
	if len(spans) == 0 {
		return src
	}
	var sb strings.Builder
	sb.Grow(len(src))
	cursor := 0
	for _, sp := range spans {
		sb.WriteString(src[cursor:sp.start])
		sb.WriteString(sp.text)
		cursor = sp.end
	}
	sb.WriteString(src[cursor:])
	return sb.String()
}
