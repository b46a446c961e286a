package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// setupTestServer builds a Server over a temp data dir with a few pages and
// the special error pages.
func setupTestServer(t *testing.T, mount string) *Server {
	t.Helper()
	dir := t.TempDir()

	cm, err := NewConfigManager(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	cm.config.Server.DataDir = filepath.Join(dir, "data")
	cm.config.Server.SpecialDir = filepath.Join(dir, "special")
	cm.config.Server.MountPoint = mount
	cm.config.Server.TrustedProxies = []string{"192.0.2.0/24"}
	cm.refreshCache()

	templates := filepath.Join(dir, "data", "templates")
	writeFile(t, filepath.Join(templates, "layout.html"), "<title>{{site?}}</title>{{in}}")
	writeFile(t, filepath.Join(templates, "index.htmo"), "{{#wrap}}layout.html:home {{base}} {{query_q?}}{{/wrap}}")
	writeFile(t, filepath.Join(templates, "docs", "intro.htmo"), "intro at {{path}}")
	writeFile(t, filepath.Join(templates, "broken.htmo"), "{{nope}}")
	writeFile(t, filepath.Join(dir, "special", "404.html"), "custom 404")
	writeFile(t, filepath.Join(dir, "special", "50x.html"), "custom 50x")

	db, err := initDB(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, setupSchemas(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cm, logger, db, make(chan string, 1))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doAuthRequest(h http.Handler, key, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(authHeader, key)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlePage(t *testing.T) {
	s := setupTestServer(t, "/site/")

	tests := []struct {
		name   string
		method string
		target string
		code   int
		body   string
	}{
		{"index", http.MethodGet, "/site/?q=term", http.StatusOK, "<title></title>home /site/ term"},
		{"mount without slash", http.MethodGet, "/site", http.StatusOK, "<title></title>home /site/ "},
		{"post allowed", http.MethodPost, "/site/docs/intro", http.StatusOK, "intro at /site/docs/intro"},
		{"missing page", http.MethodGet, "/site/nothing", http.StatusNotFound, "custom 404"},
		{"layout is not a page", http.MethodGet, "/site/layout", http.StatusNotFound, "custom 404"},
		{"outside mount", http.MethodGet, "/other", http.StatusNotFound, "custom 404"},
		{"render failure", http.MethodGet, "/site/broken", http.StatusInternalServerError, "custom 50x"},
		{"bad method", http.MethodPut, "/site/", http.StatusBadRequest, "Bad Request\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s.pageMux, tt.method, tt.target, "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestStatsAPI(t *testing.T) {
	s := setupTestServer(t, "/")

	doRequest(s.pageMux, http.MethodGet, "/", "")
	doRequest(s.pageMux, http.MethodGet, "/", "")
	doRequest(s.pageMux, http.MethodGet, "/broken", "")

	rec := doRequest(s.apiHandler, http.MethodGet, "/api/stats/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary GlobalStatsSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, GlobalStatsSummary{TotalRequests: 3, UniquePages: 2, ErrorRequests: 1}, summary)

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/stats/top_pages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pages []PageStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pages))
	require.Len(t, pages, 2)
	assert.Equal(t, "index.htmo", pages[0].Page)
	assert.EqualValues(t, 2, pages[0].TotalHits)
	assert.Equal(t, http.StatusInternalServerError, pages[1].LastStatus)
}

func TestVarsAPI(t *testing.T) {
	s := setupTestServer(t, "/")

	rec := doRequest(s.apiHandler, http.MethodPost, "/api/vars", `{"name": "site", "kind": "string", "value": "Bakery"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s.pageMux, http.MethodGet, "/", "")
	assert.Equal(t, "<title>Bakery</title>home / ", rec.Body.String())

	rec = doRequest(s.apiHandler, http.MethodPost, "/api/vars", `{"name": "bad:name", "kind": "string", "value": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/vars/site", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name": "site", "kind": "string", "value": "Bakery"}`, rec.Body.String())

	rec = doRequest(s.apiHandler, http.MethodDelete, "/api/vars/site", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(s.apiHandler, http.MethodGet, "/api/vars/site", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTemplateAPI(t *testing.T) {
	s := setupTestServer(t, "/")

	rec := doRequest(s.apiHandler, http.MethodPut, "/api/templates/blog/post.htmo", "{{#wrap}}../layout.html:post{{/wrap}}")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(s.pageMux, http.MethodGet, "/blog/post", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<title></title>post", rec.Body.String())

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/templates/blog/post.htmo", "")
	assert.Equal(t, "{{#wrap}}../layout.html:post{{/wrap}}", rec.Body.String())

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Contains(t, list["pages"], "blog/post.htmo")
	assert.Contains(t, list["templates"], "layout.html")

	rec = doRequest(s.apiHandler, http.MethodPost, "/api/templates/test?q=x", "{{#wrap}}layout.html:{{query_q}}{{/wrap}}")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<title></title>x", rec.Body.String())

	rec = doRequest(s.apiHandler, http.MethodPost, "/api/templates/test", "{{#open}}")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/templates/preview?name=index.htmo&q=p", "")
	assert.Equal(t, "<title></title>home / p", rec.Body.String())

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/templates/preview?name=none.htmo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/templates/../config.json", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)

	rec = doRequest(s.apiHandler, http.MethodDelete, "/api/templates/blog/post.htmo", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(s.pageMux, http.MethodGet, "/blog/post", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerAPI_Config(t *testing.T) {
	s := setupTestServer(t, "/")

	rec := doRequest(s.apiHandler, http.MethodPut, "/api/server/config", `{"template_config": {"page_extension": ".html"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"layout.html"}, s.tm.GetPageNames())

	rec = doRequest(s.apiHandler, http.MethodPut, "/api/server/config", `{"server_config": {"mount_point": "no-slash"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "/", s.cm.Get().Server.MountPoint)

	saved, err := LoadConfig(s.cm.configPath)
	require.NoError(t, err)
	assert.Equal(t, ".html", saved.Templates.PageExtension)

	rec = doRequest(s.apiHandler, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerAPI_ConfigSaveFailure(t *testing.T) {
	s := setupTestServer(t, "/")
	s.cm.configPath = filepath.Join(t.TempDir(), "missing", "config.json")

	rec := doRequest(s.apiHandler, http.MethodPut, "/api/server/config", `{"template_config": {"page_extension": ".html"}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ".htmo", s.cm.Get().Templates.PageExtension)
	assert.Contains(t, s.tm.GetPageNames(), "index.htmo")
}

func TestAuthAPI(t *testing.T) {
	s := setupTestServer(t, "/")

	// With no keys the API is open, and the first key is always a master key.
	rec := doRequest(s.apiHandler, http.MethodPost, "/api/auth/keys", `{"scopes": ["stats:read"], "description": "admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var master CreateKeyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &master))
	assert.Equal(t, []string{"*"}, master.Scopes)
	assert.True(t, strings.HasPrefix(master.RawKey, "bakery_"))

	unauthenticated := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/api/templates", ""},
		{http.MethodPut, "/api/templates/evil.htmo", "x"},
		{http.MethodPut, "/api/server/config", `{"server_config": {"data_dir": "/tmp"}}`},
		{http.MethodPost, "/api/server/shutdown", ""},
		{http.MethodGet, "/api/health", ""},
	}
	for _, tt := range unauthenticated {
		rec = doRequest(s.apiHandler, tt.method, tt.target, tt.body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tt.method, tt.target)
	}
	assert.False(t, s.tm.HasTemplate("evil.htmo"))

	rec = doAuthRequest(s.apiHandler, "bakery_wrong", http.MethodGet, "/api/templates", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doAuthRequest(s.apiHandler, master.RawKey, http.MethodGet, "/api/templates", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doAuthRequest(s.apiHandler, master.RawKey, http.MethodPost, "/api/auth/keys", `{"scopes": ["stats:read", "templates:*"], "description": "editor"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var editor CreateKeyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &editor))
	assert.Equal(t, []string{"stats:read", "templates:*"}, editor.Scopes)

	scoped := []struct {
		method, target, body string
		code                 int
	}{
		{http.MethodGet, "/api/stats/summary", "", http.StatusOK},
		{http.MethodPut, "/api/templates/new.htmo", "new", http.StatusNoContent},
		{http.MethodGet, "/api/vars", "", http.StatusForbidden},
		{http.MethodGet, "/api/server/config", "", http.StatusForbidden},
		{http.MethodPost, "/api/server/restart", "", http.StatusForbidden},
		{http.MethodGet, "/api/auth/keys", "", http.StatusForbidden},
		{http.MethodGet, "/api/auth/me", "", http.StatusOK},
	}
	for _, tt := range scoped {
		rec = doAuthRequest(s.apiHandler, editor.RawKey, tt.method, tt.target, tt.body)
		assert.Equal(t, tt.code, rec.Code, "%s %s", tt.method, tt.target)
	}

	rec = doAuthRequest(s.apiHandler, master.RawKey, http.MethodGet, "/api/auth/keys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var keys []APIKeyInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	assert.Len(t, keys, 2)

	rec = doAuthRequest(s.apiHandler, master.RawKey, http.MethodDelete, "/api/auth/keys/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doAuthRequest(s.apiHandler, master.RawKey, http.MethodDelete, "/api/auth/keys/"+strconv.Itoa(editor.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doAuthRequest(s.apiHandler, editor.RawKey, http.MethodGet, "/api/stats/summary", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHasScope(t *testing.T) {
	withScopes := func(scopes ...string) *http.Request {
		set := make(map[string]struct{})
		for _, s := range scopes {
			set[s] = struct{}{}
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), contextKeyPermissions, &Permissions{ScopeSet: set}))
	}

	assert.True(t, hasScope(withScopes("*"), scopeServerManage))
	assert.True(t, hasScope(withScopes("vars:*"), scopeVarsWrite))
	assert.True(t, hasScope(withScopes(scopeVarsRead), scopeVarsRead))
	assert.False(t, hasScope(withScopes(scopeVarsRead), scopeVarsWrite))
	assert.False(t, hasScope(withScopes("templates:*"), scopeVarsRead))
	assert.False(t, hasScope(httptest.NewRequest(http.MethodGet, "/", nil), scopeVarsRead))
}

func TestPageName(t *testing.T) {
	tests := []struct {
		mount, path string
		want        string
		ok          bool
	}{
		{"/", "/", "index.htmo", true},
		{"/", "/a/b", "a/b.htmo", true},
		{"/", "/a/", "a/index.htmo", true},
		{"/notes/", "/notes", "index.htmo", true},
		{"/notes/", "/notes/day", "day.htmo", true},
		{"/notes/", "/notesx", "", false},
		{"/", "/a/../b", "", false},
		{"/", "/.hidden", "", false},
	}
	for _, tt := range tests {
		got, ok := pageName(tt.mount, tt.path, ".htmo")
		assert.Equal(t, tt.ok, ok, "%s %s", tt.mount, tt.path)
		assert.Equal(t, tt.want, got, "%s %s", tt.mount, tt.path)
	}
}

func TestGetClientIP(t *testing.T) {
	s := setupTestServer(t, "/")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "198.51.100.7", getClientIP(req, s.cm))

	req.RemoteAddr = "192.0.2.10:1234"
	assert.Equal(t, "203.0.113.9", getClientIP(req, s.cm))
}
