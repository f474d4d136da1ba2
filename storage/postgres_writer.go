package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"festival-scraper/models"
)

// PostgresWriter upserts accepted festivals into PostgreSQL, keyed by URL.
// The full record is kept as JSONB next to the columns used for querying.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS festivals (
			id          SERIAL PRIMARY KEY,
			url         TEXT        UNIQUE NOT NULL,
			source      VARCHAR(50) NOT NULL,
			title       TEXT        NOT NULL,
			start_date  TEXT        NOT NULL DEFAULT '',
			end_date    TEXT        NOT NULL DEFAULT '',
			location    TEXT        NOT NULL DEFAULT '',
			province    VARCHAR(8)  NOT NULL DEFAULT '',
			payload     JSONB       NOT NULL,
			scraped_at  TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_festivals_source     ON festivals(source);
		CREATE INDEX IF NOT EXISTS idx_festivals_province   ON festivals(province);
		CREATE INDEX IF NOT EXISTS idx_festivals_start_date ON festivals(start_date);
	`)
	return err
}

const upsertFestival = `
	INSERT INTO festivals (url, source, title, start_date, end_date, location, province, payload, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (url) DO UPDATE SET
		source     = EXCLUDED.source,
		title      = EXCLUDED.title,
		start_date = EXCLUDED.start_date,
		end_date   = EXCLUDED.end_date,
		location   = EXCLUDED.location,
		province   = EXCLUDED.province,
		payload    = EXCLUDED.payload,
		scraped_at = EXCLUDED.scraped_at,
		updated_at = NOW()
`

// Emit inserts f, or refreshes the stored row for the same URL.
func (pw *PostgresWriter) Emit(ctx context.Context, f *models.ValidatedFestival) error {
	args, err := festivalArgs(f)
	if err != nil {
		return err
	}
	if _, err := pw.db.ExecContext(ctx, upsertFestival, args...); err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", f.URL, err)
	}
	return nil
}

func festivalArgs(f *models.ValidatedFestival) ([]interface{}, error) {
	payload, err := json.Marshal(f.Festival)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal %s: %w", f.URL, err)
	}
	scrapedAt, err := time.Parse(time.RFC3339, f.ScrapedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: scrapedAt %q: %w", f.ScrapedAt, err)
	}
	return []interface{}{
		f.URL, f.Source, f.Title, f.StartDate, f.EndDate,
		f.Location.DisplayName(), f.Province, string(payload), scrapedAt,
	}, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
