// Package history persists scan results so runs can be compared over time.
// The analysis engine itself holds no state across runs; everything durable
// lives here. Storage goes through database/sql with a
// sqlite driver for local use and postgres for shared CI history; the
// schema sticks to TEXT/INTEGER columns both dialects share.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"       // postgres driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Scan is one persisted analysis run. Endpoints is populated by GetScan and
// left nil by the list queries.
type Scan struct {
	ID              string           `json:"id"`
	Service         string           `json:"service"`
	CreatedAt       time.Time        `json:"created_at"`
	TotalEndpoints  int              `json:"total_endpoints"`
	UnusedEndpoints int              `json:"unused_endpoints"`
	Processed       int              `json:"log_entries_processed"`
	Matched         int              `json:"log_entries_matched"`
	Endpoints       []EndpointRecord `json:"endpoints,omitempty"`
}

// EndpointRecord is one endpoint's outcome within a scan.
type EndpointRecord struct {
	Method        string     `json:"method"`
	Path          string     `json:"path"`
	CallCount     int        `json:"call_count"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
	UniqueCallers int        `json:"unique_callers"`
	Confidence    int        `json:"confidence"`
	Reasons       []string   `json:"reasons"`
}

// Key returns the "METHOD /path" identity used when comparing scans.
func (e EndpointRecord) Key() string {
	return e.Method + " " + e.Path
}

// FromResults converts one analysis run into a Scan ready to persist.
func FromResults(service string, results []analyzer.Result, diag analyzer.Diagnostics, now time.Time) *Scan {
	scan := &Scan{
		ID:             uuid.New().String(),
		Service:        service,
		CreatedAt:      now.UTC(),
		TotalEndpoints: len(results),
		Processed:      diag.Processed,
		Matched:        diag.Matched,
	}
	for _, r := range results {
		if r.Usage.CallCount == 0 {
			scan.UnusedEndpoints++
		}
		scan.Endpoints = append(scan.Endpoints, EndpointRecord{
			Method:        r.Endpoint.Method,
			Path:          r.Endpoint.Path,
			CallCount:     r.Usage.CallCount,
			LastSeen:      r.Usage.LastSeen,
			UniqueCallers: r.Usage.UniqueCallers(),
			Confidence:    r.Confidence,
			Reasons:       r.Reasons,
		})
	}
	return scan
}

// Store persists scans.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the history database and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &Store{db: db, driver: driver, logger: logger}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			service TEXT NOT NULL,
			created_at TEXT NOT NULL,
			total_endpoints INTEGER NOT NULL,
			unused_endpoints INTEGER NOT NULL,
			log_entries_processed INTEGER NOT NULL,
			log_entries_matched INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_endpoints (
			scan_id TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			call_count INTEGER NOT NULL,
			last_seen TEXT,
			unique_callers INTEGER NOT NULL,
			confidence INTEGER NOT NULL,
			reasons TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_service_created
			ON scans (service, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_endpoints_scan
			ON scan_endpoints (scan_id)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("history: create tables: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the $N form postgres requires. SQLite
// takes ? as-is.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SaveScan persists a scan and its endpoint rows in one transaction.
func (s *Store) SaveScan(ctx context.Context, scan *Scan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO scans (id, service, created_at, total_endpoints,
			unused_endpoints, log_entries_processed, log_entries_matched)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		scan.ID, scan.Service, scan.CreatedAt.UTC().Format(time.RFC3339),
		scan.TotalEndpoints, scan.UnusedEndpoints, scan.Processed, scan.Matched,
	)
	if err != nil {
		return fmt.Errorf("history: insert scan: %w", err)
	}

	for _, ep := range scan.Endpoints {
		reasons, err := json.Marshal(ep.Reasons)
		if err != nil {
			return fmt.Errorf("history: marshal reasons: %w", err)
		}
		var lastSeen any
		if ep.LastSeen != nil {
			lastSeen = ep.LastSeen.UTC().Format(time.RFC3339)
		}
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO scan_endpoints (scan_id, method, path, call_count,
				last_seen, unique_callers, confidence, reasons)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			scan.ID, ep.Method, ep.Path, ep.CallCount,
			lastSeen, ep.UniqueCallers, ep.Confidence, string(reasons),
		)
		if err != nil {
			return fmt.Errorf("history: insert endpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	s.logger.Info("scan persisted",
		zap.String("scan_id", scan.ID),
		zap.String("service", scan.Service),
		zap.Int("endpoints", scan.TotalEndpoints))
	return nil
}

// GetScan loads a scan with its endpoint rows.
func (s *Store) GetScan(ctx context.Context, id string) (*Scan, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, service, created_at, total_endpoints, unused_endpoints,
			log_entries_processed, log_entries_matched
		FROM scans WHERE id = ?`), id)

	scan, err := scanRow(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT method, path, call_count, last_seen, unique_callers, confidence, reasons
		FROM scan_endpoints WHERE scan_id = ?
		ORDER BY confidence DESC, call_count ASC, method ASC, path ASC`), id)
	if err != nil {
		return nil, fmt.Errorf("history: query endpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ep EndpointRecord
		var lastSeen sql.NullString
		var reasons string
		if err := rows.Scan(&ep.Method, &ep.Path, &ep.CallCount, &lastSeen,
			&ep.UniqueCallers, &ep.Confidence, &reasons); err != nil {
			return nil, fmt.Errorf("history: scan endpoint row: %w", err)
		}
		if lastSeen.Valid {
			if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
				ep.LastSeen = &t
			}
		}
		if err := json.Unmarshal([]byte(reasons), &ep.Reasons); err != nil {
			return nil, fmt.Errorf("history: decode reasons: %w", err)
		}
		scan.Endpoints = append(scan.Endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate endpoints: %w", err)
	}
	return scan, nil
}

// ListScans returns scan summaries for a service, newest first. A zero
// limit means 50.
func (s *Store) ListScans(ctx context.Context, service string, limit int) ([]*Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, service, created_at, total_endpoints, unused_endpoints,
			log_entries_processed, log_entries_matched
		FROM scans WHERE service = ?
		ORDER BY created_at DESC LIMIT ?`), service, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query scans: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectScans(rows)
}

// ScansSince returns scan summaries for a service at or after the given
// time, oldest first, ready for trend analysis.
func (s *Store) ScansSince(ctx context.Context, service string, since time.Time) ([]*Scan, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, service, created_at, total_endpoints, unused_endpoints,
			log_entries_processed, log_entries_matched
		FROM scans WHERE service = ? AND created_at >= ?
		ORDER BY created_at ASC`), service, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("history: query scans: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectScans(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (*Scan, error) {
	var scan Scan
	var createdAt string
	err := r.Scan(&scan.ID, &scan.Service, &createdAt, &scan.TotalEndpoints,
		&scan.UnusedEndpoints, &scan.Processed, &scan.Matched)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history: scan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("history: scan row: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		scan.CreatedAt = t
	}
	return &scan, nil
}

func collectScans(rows *sql.Rows) ([]*Scan, error) {
	var scans []*Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate scans: %w", err)
	}
	return scans, nil
}
