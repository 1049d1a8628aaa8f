package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"shipdash/internal/models"
)

// DefaultDSN keeps the dataset in a shared in-memory database for the
// process lifetime.
const DefaultDSN = "file:shipdash?mode=memory&cache=shared"

const schema = `
CREATE TABLE IF NOT EXISTS shipments (
	id               INTEGER PRIMARY KEY,
	importer_name    TEXT NOT NULL,
	importer_country TEXT NOT NULL,
	importer_website TEXT,
	exporter_name    TEXT NOT NULL,
	exporter_country TEXT NOT NULL,
	exporter_website TEXT,
	commodity        TEXT NOT NULL,
	weight           REAL NOT NULL,
	shipped_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shipments_importer ON shipments(importer_name, importer_country);
CREATE INDEX IF NOT EXISTS idx_shipments_exporter ON shipments(exporter_name, exporter_country);
CREATE INDEX IF NOT EXISTS idx_shipments_date ON shipments(shipped_at);
`

// Store is the data-access object over the embedded shipment table.
// It is constructed once at startup and injected into every consumer;
// after the initial load all access is read-only, so concurrent requests
// need no coordination beyond the connection pool.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the store and its schema. The dsn is usually DefaultDSN;
// tests pass ":memory:". A single connection is kept so the in-memory
// database survives for the life of the process.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema is idempotent; calling it against an initialized database
// is a no-op.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// shipmentRecord mirrors one element of the source JSON array. The dataset
// serializes dates as "2006-01-02".
type shipmentRecord struct {
	ID              int64   `json:"id"`
	ImporterName    string  `json:"importer_name"`
	ImporterCountry string  `json:"importer_country"`
	ImporterWebsite *string `json:"importer_website"`
	ExporterName    string  `json:"exporter_name"`
	ExporterCountry string  `json:"exporter_country"`
	ExporterWebsite *string `json:"exporter_website"`
	Commodity       string  `json:"commodity"`
	Weight          float64 `json:"weight"`
	Date            string  `json:"date"`
}

// LoadJSON reads the source dataset file (a single JSON array) and loads it
// into the shipment table. Called exactly once at process start.
func (s *Store) LoadJSON(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("store: read dataset: %w", err)
	}

	var records []shipmentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, fmt.Errorf("store: parse dataset: %w", err)
	}

	shipments := make([]models.Shipment, 0, len(records))
	for i, rec := range records {
		date, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			// Some exports carry full timestamps.
			date, err = time.Parse(time.RFC3339, rec.Date)
			if err != nil {
				return 0, fmt.Errorf("store: record %d: bad date %q: %w", i, rec.Date, err)
			}
		}
		shipments = append(shipments, models.Shipment{
			ID:              rec.ID,
			ImporterName:    rec.ImporterName,
			ImporterCountry: rec.ImporterCountry,
			ImporterWebsite: rec.ImporterWebsite,
			ExporterName:    rec.ExporterName,
			ExporterCountry: rec.ExporterCountry,
			ExporterWebsite: rec.ExporterWebsite,
			Commodity:       rec.Commodity,
			Weight:          rec.Weight,
			Date:            date,
		})
	}

	if err := s.LoadShipments(ctx, shipments); err != nil {
		return 0, err
	}
	return len(shipments), nil
}

// LoadShipments inserts the given records inside a single transaction with a
// prepared statement. The table is not truncated first; the caller owns the
// load-once discipline.
func (s *Store) LoadShipments(ctx context.Context, shipments []models.Shipment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO shipments (
			id, importer_name, importer_country, importer_website,
			exporter_name, exporter_country, exporter_website,
			commodity, weight, shipped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	start := time.Now()
	for _, sh := range shipments {
		if _, err := stmt.ExecContext(ctx,
			sh.ID,
			sh.ImporterName, sh.ImporterCountry, sh.ImporterWebsite,
			sh.ExporterName, sh.ExporterCountry, sh.ExporterWebsite,
			sh.Commodity, sh.Weight, sh.Date.Format("2006-01-02"),
		); err != nil {
			return fmt.Errorf("store: insert shipment %d: %w", sh.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit load: %w", err)
	}

	s.logger.Info("dataset loaded",
		"records", len(shipments),
		"duration", time.Since(start),
	)
	return nil
}

// Count returns the number of rows in the shipment table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count shipments: %w", err)
	}
	return n, nil
}
