// Package store persists finished build sessions in SQLite: the component
// blocks, surfaces, cells and variables of each build, keyed by the
// session ID.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/cellforge/pkg/model"
	"github.com/chazu/cellforge/pkg/rule"
	"github.com/chazu/cellforge/pkg/vars"
)

//go:embed schema.sql
var schemaSQL string

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Load for an unknown build ID.
var ErrNotFound = errors.New("store: build not found")

// DB is a build database.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the foreign key pragma in force.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{db}, nil
}

// Component is a stored registry block.
type Component struct {
	Name        string `json:"name"`
	SurfaceBase int    `json:"surface_base"`
	BlockSize   int    `json:"block_size"`
	CellBase    int    `json:"cell_base"`
}

// Build is a stored session.
type Build struct {
	ID         uuid.UUID             `json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	Note       string                `json:"note,omitempty"`
	Components []Component           `json:"components"`
	Surfaces   []model.SurfaceRecord `json:"surfaces"`
	Cells      []model.CellRecord    `json:"cells"`
	Vars       *vars.Store           `json:"-"`
}

// Save writes the session in one transaction. Saving the same session ID
// twice fails.
func (db *DB) Save(ctx context.Context, s *model.Session, note string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id := s.ID.String()
	now := time.Now().UTC().Format(timeFormat)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, created_at, note) VALUES (?, ?, ?)`, id, now, note); err != nil {
		return fmt.Errorf("store: insert build %s: %w", id, err)
	}

	for _, e := range s.Surfaces.Entries() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO components (build_id, name, surface_base, block_size, cell_base) VALUES (?, ?, ?, ?, ?)`,
			id, e.Name, e.SurfaceBase, e.Count, e.CellBase); err != nil {
			return fmt.Errorf("store: insert component %s: %w", e.Name, err)
		}
	}
	for _, r := range s.SurfaceRecords() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO surfaces (build_id, id, kind, card) VALUES (?, ?, ?, ?)`,
			id, r.ID, r.Kind, r.Card); err != nil {
			return fmt.Errorf("store: insert surface %d: %w", r.ID, err)
		}
	}
	for i, c := range s.CellRecords() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cells (build_id, number, seq, material, temperature, rule, owner, grp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, c.Number, i, c.Material, c.Temperature, c.Rule, c.Owner, c.Group); err != nil {
			return fmt.Errorf("store: insert cell %d: %w", c.Number, err)
		}
	}
	seq := 0
	err = s.Vars.Each(func(name string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("store: encode variable %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO variables (build_id, seq, name, value) VALUES (?, ?, ?, ?)`,
			id, seq, name, string(raw)); err != nil {
			return fmt.Errorf("store: insert variable %s: %w", name, err)
		}
		seq++
		return nil
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Load reads a build back. Cell rules are re-parsed so that a corrupt row
// is reported here rather than by a later reader.
func (db *DB) Load(ctx context.Context, id uuid.UUID) (*Build, error) {
	b := &Build{ID: id, Vars: vars.NewStore()}
	var created string
	err := db.QueryRowContext(ctx, `SELECT created_at, note FROM builds WHERE id = ?`, id.String()).
		Scan(&created, &b.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if b.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("store: build %s: %w", id, err)
	}

	if err := db.each(ctx, `SELECT name, surface_base, block_size, cell_base FROM components WHERE build_id = ? ORDER BY surface_base`,
		func(rows *sql.Rows) error {
			var c Component
			if err := rows.Scan(&c.Name, &c.SurfaceBase, &c.BlockSize, &c.CellBase); err != nil {
				return err
			}
			b.Components = append(b.Components, c)
			return nil
		}, id.String()); err != nil {
		return nil, err
	}
	if err := db.each(ctx, `SELECT id, kind, card FROM surfaces WHERE build_id = ? ORDER BY id`,
		func(rows *sql.Rows) error {
			var r model.SurfaceRecord
			if err := rows.Scan(&r.ID, &r.Kind, &r.Card); err != nil {
				return err
			}
			b.Surfaces = append(b.Surfaces, r)
			return nil
		}, id.String()); err != nil {
		return nil, err
	}
	if err := db.each(ctx, `SELECT number, material, temperature, rule, owner, grp FROM cells WHERE build_id = ? ORDER BY seq`,
		func(rows *sql.Rows) error {
			var c model.CellRecord
			if err := rows.Scan(&c.Number, &c.Material, &c.Temperature, &c.Rule, &c.Owner, &c.Group); err != nil {
				return err
			}
			if _, err := rule.Parse(c.Rule); err != nil {
				return fmt.Errorf("cell %d: %w", c.Number, err)
			}
			b.Cells = append(b.Cells, c)
			return nil
		}, id.String()); err != nil {
		return nil, err
	}
	if err := db.each(ctx, `SELECT name, value FROM variables WHERE build_id = ? ORDER BY seq`,
		func(rows *sql.Rows) error {
			var name, raw string
			if err := rows.Scan(&name, &raw); err != nil {
				return err
			}
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return fmt.Errorf("variable %s: %w", name, err)
			}
			return b.Vars.Set(name, v)
		}, id.String()); err != nil {
		return nil, err
	}
	return b, nil
}

// BuildInfo is one row of List.
type BuildInfo struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Note      string
	Cells     int
}

// List returns every stored build, oldest first.
func (db *DB) List(ctx context.Context) ([]BuildInfo, error) {
	var out []BuildInfo
	err := db.each(ctx, `
		SELECT b.id, b.created_at, b.note, COUNT(c.number)
		FROM builds b LEFT JOIN cells c ON c.build_id = b.id
		GROUP BY b.id
		ORDER BY b.created_at, b.id`, func(rows *sql.Rows) error {
		var info BuildInfo
		var id, created string
		if err := rows.Scan(&id, &created, &info.Note, &info.Cells); err != nil {
			return err
		}
		var err error
		if info.ID, err = uuid.Parse(id); err != nil {
			return err
		}
		if info.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return err
		}
		out = append(out, info)
		return nil
	})
	return out, err
}

// Delete removes a build and all its rows.
func (db *DB) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// each runs query and calls fn per row.
func (db *DB) each(ctx context.Context, query string, fn func(*sql.Rows) error, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("store: scan: %w", err)
		}
	}
	return rows.Err()
}
