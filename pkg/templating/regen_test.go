package templating

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerate(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "base.html", "<h1>{{title}}</h1>{{in}}")
	writeTemplate(t, root, "index.htms", "{{#wrap}}base.html:home{{/wrap}}")
	writeTemplate(t, root, "blog/post.htms", "{{#wrap}}../base.html:{{#posts}}<p>{{text}}</p>{{/posts}}{{/wrap}}")
	writeTemplate(t, root, "notes.txt", "{{ignored}}")

	vars := bakery.Bindings{
		"title": "Site",
		"posts": []bakery.Bindings{{"text": "a"}, {"text": "b"}},
	}
	written, err := Regenerate(discardLogger, root, DefaultConfig(), vars)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "index.html"),
		filepath.Join(root, "blog", "post.html"),
	}, written)

	out, err := os.ReadFile(filepath.Join(root, "blog", "post.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Site</h1><p>a</p><p>b</p>", string(out))

	out, err = os.ReadFile(filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Site</h1>home", string(out))

	// Running again overwrites in place.
	written, err = Regenerate(discardLogger, root, DefaultConfig(), bakery.Bindings{"title": "New", "posts": false})
	require.NoError(t, err)
	assert.Len(t, written, 2)
	out, err = os.ReadFile(filepath.Join(root, "blog", "post.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>New</h1>", string(out))
}

func TestRegenerate_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeTemplate(t, other, "outside.htms", "outside")
	writeTemplate(t, root, "page.htms", "page")
	if err := os.Symlink(filepath.Join(other, "outside.htms"), filepath.Join(root, "link.htms")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	written, err := Regenerate(discardLogger, root, DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "page.html")}, written)
	assert.NoFileExists(t, filepath.Join(root, "link.html"))
}

func TestRegenerate_StopsAtFirstError(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "a.htms", "ok")
	writeTemplate(t, root, "b.htms", "{{undefined}}")
	writeTemplate(t, root, "c.htms", "never")

	written, err := Regenerate(discardLogger, root, DefaultConfig(), nil)
	var uv *bakery.UndefinedVariableError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, []string{filepath.Join(root, "a.html")}, written)
	assert.NoFileExists(t, filepath.Join(root, "b.html"))
	assert.NoFileExists(t, filepath.Join(root, "c.html"))
}

func TestRegenerate_InvalidExtensions(t *testing.T) {
	config := DefaultConfig()
	config.RegenTargetExtension = config.RegenSourceExtension
	_, err := Regenerate(discardLogger, t.TempDir(), config, nil)
	assert.Error(t, err)
}
