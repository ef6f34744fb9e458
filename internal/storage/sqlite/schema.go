package sqlite

// schema is applied on every open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS patterns (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	dominant_variant TEXT NOT NULL,
	dominant_description TEXT NOT NULL,
	confidence REAL NOT NULL,
	total_observations INTEGER NOT NULL,
	variants TEXT NOT NULL,
	evidence TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
	id TEXT PRIMARY KEY,
	pattern_id TEXT NOT NULL,
	category TEXT NOT NULL,
	file TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	start_char INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	end_char INTEGER NOT NULL,
	severity TEXT NOT NULL,
	expected TEXT NOT NULL,
	actual TEXT NOT NULL,
	first_seen TEXT NOT NULL,
	last_seen TEXT NOT NULL,
	occurrences INTEGER NOT NULL,
	resolved_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_violations_file ON violations(file);
CREATE INDEX IF NOT EXISTS idx_violations_pattern ON violations(pattern_id);

CREATE TABLE IF NOT EXISTS approved_variants (
	id TEXT PRIMARY KEY,
	pattern_id TEXT NOT NULL,
	scope_file TEXT NOT NULL DEFAULT '',
	scope_glob TEXT NOT NULL DEFAULT '',
	scope_range TEXT,
	reason TEXT NOT NULL,
	approver TEXT NOT NULL,
	approved_at TEXT NOT NULL
);
`
