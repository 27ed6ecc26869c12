package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// connectionPragma is a setting applied on Open and read back to confirm
// SQLite accepted it. Want is the value PRAGMA <name> reports afterwards.
type connectionPragma struct {
	name  string
	value string
	want  string
}

// connectionPragmas are applied in order and verified on every Open.
var connectionPragmas = []connectionPragma{
	{name: "journal_mode", value: "WAL", want: "wal"},
	{name: "synchronous", value: "NORMAL", want: "1"},
	{name: "busy_timeout", value: "5000", want: "5000"},
	{name: "foreign_keys", value: "ON", want: "1"},
}

// migration upgrades a ledger created by an older hlsgen to version.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations are applied in order to databases whose user_version is lower.
// schema.sql only creates tables; indexes and later changes live here.
var migrations = []migration{
	{
		version: 1,
		name:    "index runs by manifest hash",
		stmts: []string{
			"CREATE INDEX IF NOT EXISTS idx_runs_manifest_hash ON runs(manifest_hash, seq)",
		},
	},
}

// schemaVersion is the user_version of a fully migrated ledger.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is the run ledger.
type Store struct {
	db    *sql.DB
	ids   IDGenerator
	clock *clock
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUIDv7 run id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// Open creates or opens the run ledger at path, migrates it to the current
// schema and resumes the logical clock from the highest recorded seq.
// Opening the same path repeatedly is safe.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	// One connection: pragmas are per connection and SQLite has one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	last, err := prepare(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open run ledger %s: %w", path, err)
	}

	s := &Store{db: db, ids: UUIDv7Generator{}, clock: newClockAt(last)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// prepare configures the connection, migrates the schema and returns the
// highest recorded seq.
func prepare(db *sql.DB) (int64, error) {
	if err := db.Ping(); err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	for _, p := range connectionPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return 0, fmt.Errorf("set %s: %w", p.name, err)
		}
		got, err := readPragma(db, p.name)
		if err != nil {
			return 0, err
		}
		if got != p.want {
			return 0, fmt.Errorf("pragma %s is %q after setting %s, want %q", p.name, got, p.value, p.want)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return 0, fmt.Errorf("apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		return 0, err
	}

	var last int64
	if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM runs").Scan(&last); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return last, nil
}

// migrate applies every pending migration in its own transaction, bumping
// user_version with it so a failed step is retried on the next Open.
func migrate(db *sql.DB) error {
	version, err := readPragma(db, "user_version")
	if err != nil {
		return err
	}
	var current int
	if _, err := fmt.Sscan(version, &current); err != nil {
		return fmt.Errorf("parse user_version %q: %w", version, err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): set user_version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func readPragma(db *sql.DB, name string) (string, error) {
	var value string
	if err := db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LastSeq returns the seq of the most recent run, 0 when none exist.
func (s *Store) LastSeq() int64 {
	return s.clock.current()
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
