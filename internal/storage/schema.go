package storage

const schema = `
-- 'card_mutations' is the append-only card edit log. Each row is a full snapshot;
-- the live card is the row with the highest version for an id.
CREATE TABLE IF NOT EXISTS card_mutations (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL, -- unix milliseconds
    updated_at INTEGER NOT NULL,
    version INTEGER NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_card_mutations_id ON card_mutations(id);

-- 'review_events' is the append-only review log.
CREATE TABLE IF NOT EXISTS review_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    card_id TEXT NOT NULL,
    reviewed_at INTEGER NOT NULL, -- unix milliseconds
    rating TEXT NOT NULL,
    mode TEXT NOT NULL,
    duration_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_review_events_card_id ON review_events(card_id);

-- The 'sources' table tracks where decks are imported from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    last_scanned INTEGER
);
`
