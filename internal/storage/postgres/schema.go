package postgres

// Schema contains the SQL statements to create the database schema for
// PostgreSQL. Every statement is idempotent.
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
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL UNIQUE,
    scores     JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_scores ON activities USING GIN (scores);

CREATE TABLE IF NOT EXISTS custom_activities (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL UNIQUE,
    scores     JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS taxonomy_edits (
    activity_name TEXT NOT NULL,
    dimension_key TEXT NOT NULL,
    value         DOUBLE PRECISION NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (activity_name, dimension_key)
);
`
