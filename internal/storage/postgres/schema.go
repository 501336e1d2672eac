package postgres

// Schema creates the cache tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS extractions (
    workspace TEXT NOT NULL,
    chapter INTEGER NOT NULL,
    data JSONB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (workspace, chapter)
);

CREATE TABLE IF NOT EXISTS profiles (
    workspace TEXT NOT NULL,
    chapter INTEGER NOT NULL,
    category TEXT NOT NULL,
    name TEXT NOT NULL,
    data JSONB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (workspace, chapter, category, name)
);

CREATE TABLE IF NOT EXISTS summaries (
    workspace TEXT NOT NULL,
    category TEXT NOT NULL,
    name TEXT NOT NULL,
    summary TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (workspace, category, name)
);
`
