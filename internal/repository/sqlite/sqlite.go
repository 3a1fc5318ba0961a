// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite — no CGo, no C toolchain, trivial
// cross-compilation. The driver registers itself as "sqlite" via the blank
// import below.
//
// The whole game state lives in one file (or ":memory:" under test): users,
// characters, per-user activity stats, guilds, and achievement grants.
// A single write-capable connection with WAL journaling is more than enough
// for the write rates a sync workload produces.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface. One struct for all entities keeps cross-entity transactions
// (sync write groups, character+stats creation) inside the package instead
// of leaking *sql.Tx upward.
type DB struct {
	conn *sql.DB
}

// New opens the database, applies the pragmas we rely on, and runs the
// migrations. Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection for everything. SQLite allows a single writer anyway,
	// and without this an ":memory:" database would be a different database
	// on every pooled connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows reads concurrent with a write — important once the bulk
	// sync is writing while leaderboard reads come in.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// SQLite ships with foreign keys off; the schema below depends on them
	// (guild_members → guilds/users, grants → achievements).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer this wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema and seeds the achievement catalog. Every
// statement is idempotent (IF NOT EXISTS / INSERT OR IGNORE), so running
// it on an existing database is safe.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			github_id    INTEGER NOT NULL UNIQUE,
			login        TEXT NOT NULL,
			email        TEXT NOT NULL DEFAULT '',
			avatar_url   TEXT NOT NULL DEFAULT '',
			github_token TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// level and current_xp are derived from total_xp by the level curve;
	// only the services write them, always recomputed together.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS characters (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE REFERENCES users(id),
			class      TEXT NOT NULL,
			level      INTEGER NOT NULL DEFAULT 1,
			total_xp   INTEGER NOT NULL DEFAULT 0,
			current_xp INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK (level >= 1),
			CHECK (total_xp >= 0)
		);
		CREATE INDEX IF NOT EXISTS idx_characters_total_xp ON characters(total_xp DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating characters table: %w", err)
	}

	// last_sync_at is NULLable on purpose: NULL means "never reconciled",
	// which is a different state from "reconciled and found nothing".
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_stats (
			user_id          TEXT PRIMARY KEY REFERENCES users(id),
			total_commits    INTEGER NOT NULL DEFAULT 0,
			total_prs        INTEGER NOT NULL DEFAULT 0,
			total_issues     INTEGER NOT NULL DEFAULT 0,
			baseline_commits INTEGER NOT NULL DEFAULT 0,
			baseline_prs     INTEGER NOT NULL DEFAULT 0,
			baseline_issues  INTEGER NOT NULL DEFAULT 0,
			last_sync_at     DATETIME,
			CHECK (baseline_commits <= total_commits),
			CHECK (baseline_prs <= total_prs),
			CHECK (baseline_issues <= total_issues)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating user_stats table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS guilds (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			owner_id      TEXT NOT NULL REFERENCES users(id),
			total_members INTEGER NOT NULL DEFAULT 0,
			total_xp      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS guild_members (
			guild_id  TEXT NOT NULL REFERENCES guilds(id),
			user_id   TEXT NOT NULL REFERENCES users(id),
			joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (guild_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_guild_members_user_id ON guild_members(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating guild tables: %w", err)
	}

	// The composite primary key on grants is what enforces at-most-once:
	// ApplyGrant uses INSERT OR IGNORE against it.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS achievements (
			code        TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			xp_reward   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS achievement_grants (
			user_id    TEXT NOT NULL REFERENCES users(id),
			code       TEXT NOT NULL REFERENCES achievements(code),
			granted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, code)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating achievement tables: %w", err)
	}

	// Seed the catalog. INSERT OR IGNORE keeps the rewards stable on
	// restart — editing a reward later does not rewrite XP that was
	// already granted.
	_, err = db.conn.Exec(`
		INSERT OR IGNORE INTO achievements (code, name, description, xp_reward) VALUES
			('first-sync',    'First Steps',    'Completed a first activity sync',        100),
			('contributor',   'Contributor',    'A steady stream of merged work',          300),
			('guild-founder', 'Guild Founder',  'Founded a guild',                         200),
			('centurion',     'Centurion',      'One hundred commits counted',             500);
	`)
	if err != nil {
		return fmt.Errorf("seeding achievements: %w", err)
	}

	return nil
}
