package varstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/CTAG07/Bakery/pkg/bakery"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore opens a fresh database in a temp dir and returns a Store on it.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	// Idempotent.
	if err = SetupSchema(db); err != nil {
		t.Fatalf("second SetupSchema failed: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, Var{Name: "site", Kind: KindString, Value: "Notes"}))
	v, err := s.Get(ctx, "site")
	require.NoError(t, err)
	assert.Equal(t, Var{Name: "site", Kind: KindString, Value: "Notes"}, v)

	require.NoError(t, s.Set(ctx, Var{Name: "site", Kind: KindBool, Value: "true"}))
	v, err = s.Get(ctx, "site")
	require.NoError(t, err)
	assert.Equal(t, KindBool, v.Kind)

	require.NoError(t, s.Delete(ctx, "site"))
	_, err = s.Get(ctx, "site")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "site"), ErrNotFound)
}

func TestStore_Validation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		v    Var
	}{
		{"empty name", Var{Kind: KindString}},
		{"reserved character", Var{Name: "a:b", Kind: KindString}},
		{"tag delimiter", Var{Name: "{{a}}", Kind: KindString}},
		{"bad bool", Var{Name: "b", Kind: KindBool, Value: "maybe"}},
		{"bad list", Var{Name: "l", Kind: KindList, Value: `["a"]`}},
		{"unknown kind", Var{Name: "u", Kind: "number", Value: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.Set(ctx, tt.v))
		})
	}

	vars, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestStore_Bindings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, Var{Name: "title", Kind: KindString, Value: "Notes"}))
	require.NoError(t, s.Set(ctx, Var{Name: "public", Kind: KindBool, Value: "false"}))
	require.NoError(t, s.Set(ctx, Var{Name: "nav", Kind: KindList, Value: `[{"href": "/a", "label": "A"}, {"href": "/b", "label": "B"}]`}))

	vars, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, vars, 3)
	assert.Equal(t, "nav", vars[0].Name)

	b, err := s.Bindings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Notes", b["title"])
	assert.Equal(t, false, b["public"])

	out, err := bakery.Render(`{{title}}{{#public}}!{{/public}}:{{#nav}}<a href="{{href}}">{{label}}</a>{{/nav}}`, b)
	require.NoError(t, err)
	assert.Equal(t, `Notes:<a href="/a">A</a><a href="/b">B</a>`, out)
}
