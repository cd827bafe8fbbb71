// Package store provides the SQLite persistence layer for trained
// per-site overrides. The engine has no awareness of this format; only
// the binder reads and writes it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/navkey/dbopen"
	"github.com/hazyhaar/navkey/idgen"
	"github.com/hazyhaar/navkey/navdetect/page"
)

// Store is the override database handle.
type Store struct {
	DB    *sql.DB
	newID idgen.Generator
}

// Open opens (or creates) the override SQLite database at path, applies
// pragmas and the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, newID: idgen.Prefixed("ovr_", idgen.Default)}, nil
}

// NewWithDB wraps an existing database handle (tests).
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}
	return &Store{DB: db, newID: idgen.Prefixed("ovr_", idgen.Default)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Override is one trained per-site element choice.
type Override struct {
	ID        string      `json:"id"`
	Site      string      `json:"site"`
	Intent    page.Intent `json:"intent"`
	Selector  string      `json:"selector"` // host-side locator for the element
	Text      string      `json:"text"`
	TotalUses int         `json:"total_uses"`
	LastUsed  *int64      `json:"last_used,omitempty"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt int64       `json:"updated_at"`
}

// Put inserts or replaces the override for (site, intent).
func (s *Store) Put(ctx context.Context, o *Override) error {
	now := time.Now().UnixMilli()
	if o.ID == "" {
		o.ID = s.newID()
	}
	if o.CreatedAt == 0 {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO overrides (id, site, intent, selector, text, total_uses, created_at, updated_at)
		VALUES (?,?,?,?,?,0,?,?)
		ON CONFLICT(site, intent) DO UPDATE SET
			selector=excluded.selector, text=excluded.text,
			total_uses=0, last_used=NULL, updated_at=excluded.updated_at`,
		o.ID, o.Site, string(o.Intent), o.Selector, o.Text, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

// Get retrieves the override for (site, intent). Nil when not trained.
func (s *Store) Get(ctx context.Context, site string, intent page.Intent) (*Override, error) {
	o := &Override{}
	var in string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, site, intent, selector, text, total_uses, last_used, created_at, updated_at
		FROM overrides WHERE site = ? AND intent = ?`, site, string(intent)).Scan(
		&o.ID, &o.Site, &in, &o.Selector, &o.Text, &o.TotalUses, &o.LastUsed, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Intent = page.Intent(in)
	return o, nil
}

// GetSite retrieves both overrides for a site, either possibly nil.
func (s *Store) GetSite(ctx context.Context, site string) (prev, next *Override, err error) {
	prev, err = s.Get(ctx, site, page.IntentPrevious)
	if err != nil {
		return nil, nil, err
	}
	next, err = s.Get(ctx, site, page.IntentNext)
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

// Delete removes the override for (site, intent).
func (s *Store) Delete(ctx context.Context, site string, intent page.Intent) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM overrides WHERE site = ? AND intent = ?`, site, string(intent))
	return err
}

// DeleteSite removes all overrides for a site.
func (s *Store) DeleteSite(ctx context.Context, site string) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM overrides WHERE site = ?`, site)
	return err
}

// RecordUse bumps total_uses and last_used for an override.
func (s *Store) RecordUse(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	_, err := dbopen.Exec(ctx, s.DB, `
		UPDATE overrides SET total_uses = total_uses + 1, last_used = ?, updated_at = ?
		WHERE id = ?`, now, now, id)
	return err
}

// ListSites returns the distinct trained sites, most recently updated first.
func (s *Store) ListSites(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT site FROM overrides GROUP BY site ORDER BY MAX(updated_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}
