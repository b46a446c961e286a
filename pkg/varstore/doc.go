/*
Package varstore keeps site-wide template variables in a SQLite database.

Variables are strings, booleans, or lists of objects stored as JSON. The
template manager merges Store.Bindings into every render context, below any
per-request bindings, so pages can share values such as a site name or a
navigation list without a restart.
*/
package varstore
