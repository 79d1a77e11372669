package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the interval store: the active shift per user, completed shift
// summaries, per-status intervals, break intervals, employee schedules and
// the sweep report log.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// loc is the tracker time zone used when re-reading legacy zone-less
// timestamps.
func New(dbPath string, loc *time.Location) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	if loc == nil {
		loc = time.UTC
	}
	s := &Store{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(loc *time.Location) (*Store, error) {
	return New(":memory:", loc)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS active_shifts (
		user_id           TEXT PRIMARY KEY,
		username          TEXT NOT NULL,
		check_in_time     TEXT NOT NULL,
		current_status    TEXT NOT NULL DEFAULT 'online',
		status_start_time TEXT NOT NULL,
		on_break          INTEGER NOT NULL DEFAULT 0,
		break_start_time  TEXT
	);

	CREATE TABLE IF NOT EXISTS shift_history (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id         TEXT NOT NULL,
		username        TEXT NOT NULL,
		check_in_time   TEXT NOT NULL,
		check_out_time  TEXT NOT NULL,
		total_minutes   INTEGER NOT NULL,
		active_minutes  INTEGER NOT NULL,
		idle_minutes    INTEGER NOT NULL,
		offline_minutes INTEGER NOT NULL,
		break_minutes   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS status_intervals (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id          TEXT NOT NULL,
		status           TEXT NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS break_intervals (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id          TEXT NOT NULL,
		username         TEXT NOT NULL,
		break_start      TEXT NOT NULL,
		break_end        TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employee_schedules (
		user_id        TEXT PRIMARY KEY,
		username       TEXT NOT NULL,
		check_in_time  TEXT NOT NULL,
		check_out_time TEXT NOT NULL,
		work_days      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		report_date TEXT NOT NULL,
		kind        TEXT NOT NULL,
		user_id     TEXT NOT NULL DEFAULT '',
		sent_at     TEXT NOT NULL,
		UNIQUE(report_date, kind, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_history_user_checkin ON shift_history(user_id, check_in_time);
	CREATE INDEX IF NOT EXISTS idx_history_checkin      ON shift_history(check_in_time);
	CREATE INDEX IF NOT EXISTS idx_intervals_user_start ON status_intervals(user_id, start_time);
	CREATE INDEX IF NOT EXISTS idx_breaks_user_start    ON break_intervals(user_id, break_start);
	`
	_, err := s.db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("migrate v1: %w", err)
	}
	return nil
}

const legacyTimeLayout = "2006-01-02 15:04:05"

func (s *Store) formatTime(t time.Time) string {
	return t.In(s.loc).Format(time.RFC3339)
}

// parseTime reads a stored timestamp. RFC3339 with offset is the canonical
// form; zone-less rows from the pre-migration format are interpreted in the
// tracker zone. A row that parses with neither layout yields the zero time
// rather than an error: this is audit data, not a ledger.
func (s *Store) parseTime(v string) time.Time {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(s.loc)
	}
	if t, err := time.ParseInLocation(legacyTimeLayout, v, s.loc); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", v, s.loc); err == nil {
		return t
	}
	return time.Time{}
}
