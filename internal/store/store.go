// Package store keeps snapshots of company score records in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/TechnoServe/mfiscore/internal/score"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("record not found")

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store reads and writes records. Only raw records are stored; views,
// variance and rankings are always recomputed.
type Store struct {
	db     *sql.DB
	driver Driver
	now    func() time.Time
}

// Open opens a database and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:mfiscore.db?_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/mfiscore?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("store.Open: unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: ping: %w", err)
	}

	s := New(db, driver)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The schema is not touched.
func New(db *sql.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver, now: time.Now}
}

func (s *Store) Name() string { return "store:" + string(s.driver) }

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the schema if it does not exist. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store.Migrate: %w", err)
	}
	return nil
}

// PutRecords upserts records keyed by (cycle, company) in one transaction.
func (s *Store) PutRecords(ctx context.Context, records []score.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store.PutRecords: begin: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("store.PutRecords: encode %s: %w", r.CompanyID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO company_records (cycle_id,company_id,name,tier,record_json,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (cycle_id,company_id) DO UPDATE SET name=EXCLUDED.name, tier=EXCLUDED.tier, record_json=EXCLUDED.record_json, updated_at=EXCLUDED.updated_at`,
			r.CycleID, r.CompanyID, r.Name, string(r.Tier), string(data), now)
		if err != nil {
			return 0, fmt.Errorf("store.PutRecords: insert %s: %w", r.CompanyID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store.PutRecords: commit: %w", err)
	}
	return len(records), nil
}

// ListRecords returns the records of cycle ordered by company id. An empty
// cycle returns every record ordered by cycle, then company id.
func (s *Store) ListRecords(ctx context.Context, cycle string) ([]score.Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cycle == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT record_json FROM company_records ORDER BY cycle_id, company_id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT record_json FROM company_records WHERE cycle_id=$1 ORDER BY company_id`, cycle)
	}
	if err != nil {
		return nil, fmt.Errorf("store.ListRecords: %w", err)
	}
	defer rows.Close()

	out := []score.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store.ListRecords: scan: %w", err)
		}
		var r score.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("store.ListRecords: decode: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.ListRecords: %w", err)
	}
	return out, nil
}

// Records implements the record source interface.
func (s *Store) Records(ctx context.Context, cycle string) ([]score.Record, error) {
	return s.ListRecords(ctx, cycle)
}

// GetRecord returns one company's record. An empty cycle picks the latest
// cycle the company appears in.
func (s *Store) GetRecord(ctx context.Context, companyID, cycle string) (score.Record, error) {
	var row *sql.Row
	if cycle == "" {
		row = s.db.QueryRowContext(ctx, `SELECT record_json FROM company_records WHERE company_id=$1 ORDER BY cycle_id DESC LIMIT 1`, companyID)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT record_json FROM company_records WHERE company_id=$1 AND cycle_id=$2`, companyID, cycle)
	}
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return score.Record{}, ErrNotFound
		}
		return score.Record{}, fmt.Errorf("store.GetRecord: %w", err)
	}
	var r score.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return score.Record{}, fmt.Errorf("store.GetRecord: decode: %w", err)
	}
	return r, nil
}

// Cycles lists the stored cycles in ascending order.
func (s *Store) Cycles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT cycle_id FROM company_records ORDER BY cycle_id`)
	if err != nil {
		return nil, fmt.Errorf("store.Cycles: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("store.Cycles: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS company_records (
  cycle_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  tier TEXT NOT NULL,
  record_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (cycle_id, company_id)
);

CREATE INDEX IF NOT EXISTS company_records_company ON company_records (company_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS company_records (
  cycle_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  tier TEXT NOT NULL,
  record_json TEXT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (cycle_id, company_id)
);

CREATE INDEX IF NOT EXISTS company_records_company ON company_records (company_id);
`
