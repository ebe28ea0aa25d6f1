package store

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	language   TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	parsed_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	file_path   TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	full_name   TEXT NOT NULL,
	kind        INTEGER NOT NULL,
	exported    INTEGER NOT NULL,
	line        INTEGER NOT NULL,
	column      INTEGER NOT NULL,
	loc         INTEGER NOT NULL,
	signature   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_path);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);

CREATE TABLE IF NOT EXISTS refs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	from_file   TEXT NOT NULL,
	from_line   INTEGER NOT NULL,
	name        TEXT NOT NULL,
	to_entity   TEXT REFERENCES entities(id) ON DELETE SET NULL,
	resolved    INTEGER NOT NULL,
	ambiguous   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_refs_from ON refs(from_file);
CREATE INDEX IF NOT EXISTS idx_refs_to ON refs(to_entity);

CREATE TABLE IF NOT EXISTS unresolved (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path   TEXT NOT NULL,
	name        TEXT NOT NULL,
	line        INTEGER NOT NULL,
	column      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_unresolved_file ON unresolved(file_path);

CREATE TABLE IF NOT EXISTS dead_code (
	entity_id   TEXT PRIMARY KEY REFERENCES entities(id) ON DELETE CASCADE,
	tier        TEXT NOT NULL,
	reason      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
