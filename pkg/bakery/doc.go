/*
Package bakery implements a small recursive, tag-based text templating engine.

Templates are plain text containing three kinds of tags:

	{{name}}                 substitute name; fails if it is unbound
	{{name?}}                substitute name, or nothing if it is unbound
	{{#name}} body {{/name}} a block, evaluated by the shape of name's value

A block bound to a sequence of Bindings renders its body once per element with
that element's bindings layered on top of the current context. A block bound to
a Func hands the raw body to the function. false and "" hide the body; true and
any other string show it.

Nesting is handled by recursion rather than a stack: a pass over a text keeps at
most one block open and ignores every tag inside it, and the block's body is
rendered later by a pass of its own. A consequence is that a block nested in a
block of the same name closes at the first matching closing tag.

Every context carries two directives unless the caller shadows them:

	{{#wrap}}layout.tmpl:inner text{{/wrap}}
	{{#let}}name:value{{/let}}

wrap renders the inner text, binds it to "in" and renders layout.tmpl, resolved
against the directory of the file being rendered. let binds name to the literal
value for the rest of the current pass.

The engine does not escape output, does not cache, and never logs; failures are
returned as typed errors and no partial output is produced.
*/
package bakery
