/*
Package templating serves a directory of bakery templates.

A TemplateManager owns the template directory under the data dir. Files with
the configured page extension are pages; everything else is a layout or
partial reachable through the wrap directive. Every render gets a fresh
context built from shared variables (usually a varstore.Store), manager
globals, and per-call data, plus the markdown and sanitize directives when
enabled. Loaded sources are kept in an LRU until the next Refresh.

Regenerate renders a tree of source files to static siblings, and LoadVars
reads bindings from a YAML or JSON file for it.
*/
package templating
