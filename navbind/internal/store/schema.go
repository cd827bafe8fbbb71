package store

// Schema contains the complete DDL for the trained-override tables.
const Schema = `
-- Trained overrides: per-site manual element choices that beat detection.
-- One row per (site, intent); training again replaces the previous choice.
CREATE TABLE IF NOT EXISTS overrides (
    id          TEXT PRIMARY KEY,
    site        TEXT NOT NULL,
    intent      TEXT NOT NULL CHECK (intent IN ('previous', 'next')),
    selector    TEXT NOT NULL,
    text        TEXT NOT NULL DEFAULT '',
    total_uses  INTEGER NOT NULL DEFAULT 0,
    last_used   INTEGER,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    UNIQUE(site, intent)
);
CREATE INDEX IF NOT EXISTS idx_overrides_site ON overrides(site);
`
