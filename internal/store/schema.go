package store

// ─── Schema ─────────────────────────────────────────────────────────────────

// PostgresMigrations returns the Postgres schema, one statement per entry.
func PostgresMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS locks (
			account     TEXT PRIMARY KEY,
			address     TEXT NOT NULL,
			balance     NUMERIC(78, 0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			unlock_time BIGINT NOT NULL DEFAULT 0,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_state (
			id                SMALLINT PRIMARY KEY CHECK (id = 1),
			owner             TEXT NOT NULL,
			deposits_paused   BOOLEAN NOT NULL DEFAULT false,
			aggregate_balance NUMERIC(78, 0) NOT NULL DEFAULT 0 CHECK (aggregate_balance >= 0)
		)`,
	}
}

// SQLiteMigrations returns the SQLite schema. Amounts are stored as decimal
// text since they exceed 64 bits.
func SQLiteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS locks (
			account     TEXT PRIMARY KEY,
			address     TEXT NOT NULL,
			balance     TEXT NOT NULL DEFAULT '0',
			unlock_time INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_state (
			id                INTEGER PRIMARY KEY CHECK (id = 1),
			owner             TEXT NOT NULL,
			deposits_paused   INTEGER NOT NULL DEFAULT 0,
			aggregate_balance TEXT NOT NULL DEFAULT '0'
		)`,
	}
}
