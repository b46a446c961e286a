package templating

import (
	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday"
)

var ugcPolicy = bluemonday.UGCPolicy()

// markdown handles {{#markdown}}...{{/markdown}}: the body is rendered as a
// template first, then converted from Markdown to HTML.
func markdown(text string, s *bakery.Scope) (string, error) {
	out, err := s.Render(text, nil)
	if err != nil {
		return "", err
	}
	return string(blackfriday.MarkdownCommon([]byte(out))), nil
}

// sanitize handles {{#sanitize}}...{{/sanitize}}: the rendered body is
// passed through a user-generated-content HTML policy.
func sanitize(text string, s *bakery.Scope) (string, error) {
	out, err := s.Render(text, nil)
	if err != nil {
		return "", err
	}
	return ugcPolicy.Sanitize(out), nil
}

// directives returns the manager's directives enabled by config.
func directives(config *TemplateConfig) bakery.Bindings {
	b := bakery.Bindings{}
	if config.MarkdownEnabled {
		b["markdown"] = bakery.Func(markdown)
	}
	if config.SanitizeEnabled {
		b["sanitize"] = bakery.Func(sanitize)
	}
	return b
}
