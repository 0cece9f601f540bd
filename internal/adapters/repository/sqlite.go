package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/internal/domain/model"
	"github.com/okian/salescore/pkg/logger"
)

// SQLiteStore persists journeys in a SQLite database using the pure Go
// modernc.org/sqlite driver. Each append runs in a transaction that re-reads
// the journey header and record count before inserting.
type SQLiteStore struct {
	db   *sql.DB
	opts storeOptions
}

// migration represents a single schema migration.
type migration struct {
	version int
	name    string
	up      string
}

var sqliteMigrations = []migration{ //nolint:gochecknoglobals // ordered schema history
	{
		version: 1,
		name:    "journeys",
		up: `
			CREATE TABLE IF NOT EXISTS journeys (
				customer_id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL,
				started_at TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS journey_records (
				customer_id TEXT NOT NULL,
				session_id TEXT NOT NULL,
				seq INTEGER NOT NULL,
				record_id TEXT NOT NULL,
				stage TEXT NOT NULL,
				ts TEXT NOT NULL,
				probability REAL NOT NULL,
				delta REAL NOT NULL,
				evidence TEXT NOT NULL,
				PRIMARY KEY (customer_id, session_id, seq)
			);
		`,
	},
	{
		version: 2,
		name:    "journey_records_record_id_index",
		up: `
			CREATE UNIQUE INDEX IF NOT EXISTS idx_journey_records_record
			ON journey_records(customer_id, session_id, record_id);
		`,
	},
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations. Use ":memory:" for a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, opts: applyOptions(opts)}
	if err := s.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return err
	}

	for _, m := range sqliteMigrations {
		if version >= m.version {
			continue
		}
		s.opts.logger.Info(ctx, "running migration",
			logger.Int("version", m.version),
			logger.String("name", m.name))
		if _, err := s.db.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			return err
		}
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadJourney(ctx context.Context, q queryer, customerID string) (journey.Journey, bool, error) {
	var (
		j       = journey.Journey{CustomerID: customerID, Records: []journey.Record{}}
		started string
	)
	err := q.QueryRowContext(ctx,
		"SELECT session_id, started_at FROM journeys WHERE customer_id = ?", customerID).
		Scan(&j.SessionID, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return journey.Journey{}, false, nil
	}
	if err != nil {
		return journey.Journey{}, false, fmt.Errorf("select journey: %w", err)
	}
	if j.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return journey.Journey{}, false, fmt.Errorf("parse started_at: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT record_id, stage, ts, probability, delta, evidence
		FROM journey_records
		WHERE customer_id = ? AND session_id = ?
		ORDER BY seq`, customerID, j.SessionID)
	if err != nil {
		return journey.Journey{}, false, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec      journey.Record
			stage    string
			ts       string
			evidence string
		)
		if err := rows.Scan(&rec.ID, &stage, &ts, &rec.Probability, &rec.Delta, &evidence); err != nil {
			return journey.Journey{}, false, fmt.Errorf("scan record: %w", err)
		}
		rec.Stage = model.Stage(stage)
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return journey.Journey{}, false, fmt.Errorf("parse record ts: %w", err)
		}
		if err := json.Unmarshal([]byte(evidence), &rec.Evidence); err != nil {
			return journey.Journey{}, false, fmt.Errorf("decode evidence: %w", err)
		}
		j.Records = append(j.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return journey.Journey{}, false, err
	}
	return j, true, nil
}

// Load implements journey.Store.
func (s *SQLiteStore) Load(ctx context.Context, customerID string) (journey.Journey, error) {
	defer observe(BackendSQLite, "load", time.Now())

	j, exists, err := loadJourney(ctx, s.db, customerID)
	if err != nil {
		return journey.Journey{}, err
	}
	if !exists {
		return journey.Journey{}, journey.ErrNotFound
	}
	return j, nil
}

// Append implements journey.Store.
func (s *SQLiteStore) Append(ctx context.Context, customerID, sessionID string, expectedLen int, rec journey.Record) (journey.Journey, error) {
	defer observe(BackendSQLite, "append", time.Now())

	evidence, err := json.Marshal(rec.Evidence)
	if err != nil {
		return journey.Journey{}, fmt.Errorf("encode evidence: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return journey.Journey{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, exists, err := loadJourney(ctx, tx, customerID)
	if err != nil {
		return journey.Journey{}, err
	}
	if err := checkAppend(current, exists, sessionID, expectedLen); err != nil {
		return journey.Journey{}, err
	}
	if !exists {
		current = journey.Journey{CustomerID: customerID, SessionID: sessionID, StartedAt: rec.Timestamp}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO journeys (customer_id, session_id, started_at) VALUES (?, ?, ?)",
			customerID, sessionID, rec.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
			return journey.Journey{}, fmt.Errorf("insert journey: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO journey_records (customer_id, session_id, seq, record_id, stage, ts, probability, delta, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customerID, sessionID, current.Len(), rec.ID, string(rec.Stage),
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Probability, rec.Delta, string(evidence)); err != nil {
		return journey.Journey{}, fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return journey.Journey{}, fmt.Errorf("commit: %w", err)
	}

	current.Records = append(current.Records, rec)
	return current, nil
}

// Reset implements journey.Store. Records of earlier sessions are kept in
// journey_records but are no longer returned by Load.
func (s *SQLiteStore) Reset(ctx context.Context, customerID, sessionID string, at time.Time) (journey.Journey, error) {
	defer observe(BackendSQLite, "reset", time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journeys (customer_id, session_id, started_at) VALUES (?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET session_id = excluded.session_id, started_at = excluded.started_at`,
		customerID, sessionID, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return journey.Journey{}, fmt.Errorf("reset journey: %w", err)
	}
	return journey.Journey{CustomerID: customerID, SessionID: sessionID, StartedAt: at.UTC(), Records: []journey.Record{}}, nil
}

// Count implements journey.Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journeys").Scan(&n); err != nil {
		return 0, fmt.Errorf("count journeys: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
