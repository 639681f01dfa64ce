// Package persistence stores scan results in a local SQLite database so
// later scans can be diffed against earlier ones.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/model"
)

// Store wraps a scan database. Safe for concurrent use; writes are
// serialized with an internal mutex the way a single scan-run owner would.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates the database file (and its schema) if it does not already
// exist, and returns a Store backed by it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open scan database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init scan database schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		root_path TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		units_count INTEGER NOT NULL,
		findings_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_units (
		scan_id TEXT NOT NULL REFERENCES scans(id),
		unit_id TEXT NOT NULL,
		source_path TEXT NOT NULL,
		unit_json TEXT NOT NULL,
		PRIMARY KEY (scan_id, unit_id)
	);

	CREATE TABLE IF NOT EXISTS scan_findings (
		scan_id TEXT NOT NULL REFERENCES scans(id),
		seq INTEGER NOT NULL,
		severity TEXT NOT NULL,
		code TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		weapon_index INTEGER NOT NULL,
		message TEXT NOT NULL,
		detail TEXT NOT NULL,
		PRIMARY KEY (scan_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_scan_units_unit_id ON scan_units(unit_id);
	CREATE INDEX IF NOT EXISTS idx_scan_findings_unit_id ON scan_findings(unit_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ScanRecord is a scan's top-level metadata row.
type ScanRecord struct {
	ID            string
	RootPath      string
	StartedAt     time.Time
	UnitsCount    int
	FindingsCount int
}

// SaveScan persists a completed scan's units and findings under a new
// scan ID, returning the record.
func (s *Store) SaveScan(ctx context.Context, rootPath string, units []*model.Unit, findings []anomaly.Finding) (ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := ScanRecord{
		ID:            uuid.NewString(),
		RootPath:      rootPath,
		StartedAt:     time.Now().UTC(),
		UnitsCount:    len(units),
		FindingsCount: len(findings),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScanRecord{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (id, root_path, started_at, units_count, findings_count) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.RootPath, rec.StartedAt, rec.UnitsCount, rec.FindingsCount,
	); err != nil {
		return ScanRecord{}, fmt.Errorf("insert scan record: %w", err)
	}

	for _, u := range units {
		payload, err := json.Marshal(u)
		if err != nil {
			return ScanRecord{}, fmt.Errorf("marshal unit %q: %w", u.UnitID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scan_units (scan_id, unit_id, source_path, unit_json) VALUES (?, ?, ?, ?)`,
			rec.ID, u.UnitID, u.SourcePath, string(payload),
		); err != nil {
			return ScanRecord{}, fmt.Errorf("insert unit %q: %w", u.UnitID, err)
		}
	}

	for i, f := range findings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scan_findings (scan_id, seq, severity, code, unit_id, weapon_index, message, detail) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, f.Severity.String(), f.Code, f.UnitID, f.WeaponIndex, f.Message, f.Detail,
		); err != nil {
			return ScanRecord{}, fmt.Errorf("insert finding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ScanRecord{}, fmt.Errorf("commit scan: %w", err)
	}
	return rec, nil
}

// LoadUnits returns every unit persisted under a scan, keyed by unit_id.
func (s *Store) LoadUnits(ctx context.Context, scanID string) (map[string]model.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT unit_id, unit_json FROM scan_units WHERE scan_id = ?`, scanID)
	if err != nil {
		return nil, fmt.Errorf("query scan units: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Unit)
	for rows.Next() {
		var unitID, payload string
		if err := rows.Scan(&unitID, &payload); err != nil {
			return nil, fmt.Errorf("scan unit row: %w", err)
		}
		var u model.Unit
		if err := json.Unmarshal([]byte(payload), &u); err != nil {
			return nil, fmt.Errorf("unmarshal unit %q: %w", unitID, err)
		}
		out[unitID] = u
	}
	return out, rows.Err()
}

// ListScans returns every scan recorded for a root path, most recent
// first.
func (s *Store) ListScans(ctx context.Context, rootPath string) ([]ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root_path, started_at, units_count, findings_count
		 FROM scans WHERE root_path = ? ORDER BY started_at DESC`, rootPath)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		if err := rows.Scan(&rec.ID, &rec.RootPath, &rec.StartedAt, &rec.UnitsCount, &rec.FindingsCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestScan returns the most recently started scan for a root path, or
// ok=false if none exists yet.
func (s *Store) LatestScan(ctx context.Context, rootPath string) (rec ScanRecord, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, root_path, started_at, units_count, findings_count
		 FROM scans WHERE root_path = ? ORDER BY started_at DESC LIMIT 1`, rootPath)
	if scanErr := row.Scan(&rec.ID, &rec.RootPath, &rec.StartedAt, &rec.UnitsCount, &rec.FindingsCount); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return ScanRecord{}, false, nil
		}
		return ScanRecord{}, false, fmt.Errorf("query latest scan: %w", scanErr)
	}
	return rec, true, nil
}
