package varstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CTAG07/Bakery/pkg/bakery"
)

// Kind is the storage type of a variable.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindList   Kind = "list" // JSON array of objects
)

// ErrNotFound is returned when a variable does not exist.
var ErrNotFound = errors.New("varstore: variable not found")

// Var is one stored variable. Value holds the text form: the string itself,
// "true"/"false", or a JSON array of objects.
type Var struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Validate checks that the variable can be stored and later decoded.
func (v Var) Validate() error {
	if v.Name == "" {
		return errors.New("variable name must not be empty")
	}
	if strings.ContainsAny(v.Name, "{}#/?:") {
		return fmt.Errorf("variable name %q contains a reserved character", v.Name)
	}
	_, err := v.Decode()
	return err
}

// Decode returns the value in the shape the renderer expects.
func (v Var) Decode() (any, error) {
	switch v.Kind {
	case KindString:
		return v.Value, nil
	case KindBool:
		b, err := strconv.ParseBool(v.Value)
		if err != nil {
			return nil, fmt.Errorf("variable %q: invalid bool %q", v.Name, v.Value)
		}
		return b, nil
	case KindList:
		var items []map[string]any
		if err := json.Unmarshal([]byte(v.Value), &items); err != nil {
			return nil, fmt.Errorf("variable %q: list must be a JSON array of objects: %w", v.Name, err)
		}
		b, err := bakery.NormalizeBindings(map[string]any{v.Name: items})
		if err != nil {
			return nil, err
		}
		return b[v.Name], nil
	default:
		return nil, fmt.Errorf("variable %q: unknown kind %q", v.Name, v.Kind)
	}
}

// SetupSchema creates the variables table. It is idempotent.
func SetupSchema(db *sql.DB) error {
	const schemaVars = `
CREATE TABLE IF NOT EXISTS vars (
    name  TEXT PRIMARY KEY,
    kind  TEXT NOT NULL CHECK(kind IN ('string', 'bool', 'list')),
    value TEXT NOT NULL
);
`
	if _, err := db.Exec(schemaVars); err != nil {
		return fmt.Errorf("could not create vars schema: %w", err)
	}
	return nil
}

// Store holds site-wide variables in SQLite. All methods are safe for
// concurrent use.
type Store struct {
	db         *sql.DB
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtSet    *sql.Stmt
	stmtDelete *sql.Stmt
	logger     *slog.Logger
}

// NewStore prepares the statements used by the Store. SetupSchema must have
// been called on db first.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGet, err := db.Prepare(`SELECT kind, value FROM vars WHERE name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtList, err := db.Prepare(`SELECT name, kind, value FROM vars ORDER BY name;`)
	if err != nil {
		return nil, err
	}

	stmtSet, err := db.Prepare(`INSERT INTO vars (name, kind, value) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, value = excluded.value;`)
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(`DELETE FROM vars WHERE name = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:         db,
		stmtGet:    stmtGet,
		stmtList:   stmtList,
		stmtSet:    stmtSet,
		stmtDelete: stmtDelete,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the prepared statements.
func (s *Store) Close() {
	_ = s.stmtGet.Close()
	_ = s.stmtList.Close()
	_ = s.stmtSet.Close()
	_ = s.stmtDelete.Close()
}

// SetLogger sets the logger. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Set validates and upserts v.
func (s *Store) Set(ctx context.Context, v Var) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := s.stmtSet.ExecContext(ctx, v.Name, string(v.Kind), v.Value); err != nil {
		return fmt.Errorf("failed to store variable %q: %w", v.Name, err)
	}
	s.logger.Debug("Stored variable", "name", v.Name, "kind", v.Kind)
	return nil
}

// Get returns the variable called name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (Var, error) {
	v := Var{Name: name}
	var kind string
	err := s.stmtGet.QueryRowContext(ctx, name).Scan(&kind, &v.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Var{}, ErrNotFound
		}
		return Var{}, err
	}
	v.Kind = Kind(kind)
	return v, nil
}

// Delete removes the variable called name, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.stmtDelete.ExecContext(ctx, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Debug("Deleted variable", "name", name)
	return nil
}

// List returns every variable ordered by name.
func (s *Store) List(ctx context.Context) ([]Var, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	vars := []Var{}
	for rows.Next() {
		var v Var
		var kind string
		if err = rows.Scan(&v.Name, &kind, &v.Value); err != nil {
			return nil, err
		}
		v.Kind = Kind(kind)
		vars = append(vars, v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

// Bindings returns every variable decoded into render bindings. Variables
// that no longer decode are skipped and logged.
func (s *Store) Bindings(ctx context.Context) (bakery.Bindings, error) {
	vars, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	b := make(bakery.Bindings, len(vars))
	for _, v := range vars {
		val, err := v.Decode()
		if err != nil {
			s.logger.Warn("Skipping undecodable variable", "name", v.Name, "error", err)
			continue
		}
		b[v.Name] = val
	}
	return b, nil
}
