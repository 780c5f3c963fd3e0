package sqlite

// Schema creates every table the store needs. It is idempotent and runs on
// each open.
const Schema = `
CREATE TABLE IF NOT EXISTS dimensions (
    key         TEXT PRIMARY KEY,
    label       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_dimensions_order ON dimensions(sort_order, key);

CREATE TABLE IF NOT EXISTS activities (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL UNIQUE,
    scores     TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_activities (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL UNIQUE,
    scores     TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS taxonomy_edits (
    activity_name TEXT NOT NULL,
    dimension_key TEXT NOT NULL,
    value         REAL NOT NULL,
    updated_at    TEXT NOT NULL,
    PRIMARY KEY (activity_name, dimension_key)
);
`
