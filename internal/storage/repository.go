package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS quote_samples (
        captured_at    TIMESTAMPTZ PRIMARY KEY,
        reference_date TEXT        NOT NULL,
        arabica_brl    NUMERIC     NOT NULL,
        conilon_brl    NUMERIC     NOT NULL,
        market_open    BOOLEAN     NOT NULL,
        source         TEXT        NOT NULL,
        created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS price_alerts (
        id            BIGSERIAL PRIMARY KEY,
        captured_at   TIMESTAMPTZ NOT NULL,
        grade         TEXT        NOT NULL,
        previous_brl  NUMERIC     NOT NULL,
        current_brl   NUMERIC     NOT NULL,
        change_pct    NUMERIC     NOT NULL,
        threshold_pct NUMERIC     NOT NULL,
        channels      TEXT[]      NOT NULL,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS idx_price_alerts_captured ON price_alerts (captured_at);`

	upsertQuoteSampleSQL = `INSERT INTO quote_samples (
        captured_at,
        reference_date,
        arabica_brl,
        conilon_brl,
        market_open,
        source
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (captured_at) DO UPDATE
    SET
        reference_date = EXCLUDED.reference_date,
        arabica_brl    = EXCLUDED.arabica_brl,
        conilon_brl    = EXCLUDED.conilon_brl,
        market_open    = EXCLUDED.market_open,
        source         = EXCLUDED.source;`

	listSamplesBetweenSQL = `SELECT
        captured_at,
        reference_date,
        arabica_brl,
        conilon_brl,
        market_open,
        source,
        created_at
    FROM quote_samples
    WHERE captured_at >= $1
      AND captured_at < $2
    ORDER BY captured_at;`

	listRecentSamplesSQL = `SELECT
        captured_at,
        reference_date,
        arabica_brl,
        conilon_brl,
        market_open,
        source,
        created_at
    FROM quote_samples
    ORDER BY captured_at DESC
    LIMIT $1;`

	countSamplesSQL = `SELECT COUNT(*) FROM quote_samples;`

	insertAlertSQL = `INSERT INTO price_alerts (
        captured_at,
        grade,
        previous_brl,
        current_brl,
        change_pct,
        threshold_pct,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        captured_at,
        grade,
        previous_brl,
        current_brl,
        change_pct,
        threshold_pct,
        channels,
        created_at
    FROM price_alerts
    ORDER BY created_at DESC
    LIMIT $1;`
)

// QuoteSampleStore defines operations for archived scrape runs.
type QuoteSampleStore interface {
	UpsertQuoteSample(ctx context.Context, sample QuoteSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]QuoteSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]QuoteSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// Store aggregates access to archived samples and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createSchemaSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertQuoteSample persists or updates an archived run.
func (s *Store) UpsertQuoteSample(ctx context.Context, sample QuoteSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertQuoteSampleSQL,
		sample.CapturedAt,
		sample.ReferenceDate,
		sample.ArabicaBRL.String(),
		sample.ConilonBRL.String(),
		sample.MarketOpen,
		sample.Source,
	)
	if execErr != nil {
		return fmt.Errorf("upsert quote sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists archived runs within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]QuoteSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]QuoteSample, 0)
	for rows.Next() {
		sample, scanErr := scanQuoteSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentSamples lists the most recent runs ordered by descending capture time.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]QuoteSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]QuoteSample, 0, limit)
	for rows.Next() {
		sample, scanErr := scanQuoteSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountSamples counts archived runs.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.CapturedAt,
		alert.Grade,
		alert.PreviousBRL.String(),
		alert.CurrentBRL.String(),
		alert.ChangePct.String(),
		alert.ThresholdPct.String(),
		alert.Channels,
	)

	rec := alert
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var previousStr, currentStr, changeStr, thresholdStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.CapturedAt,
			&rec.Grade,
			&previousStr,
			&currentStr,
			&changeStr,
			&thresholdStr,
			&rec.Channels,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		if rec.PreviousBRL, convErr = decimal.NewFromString(previousStr); convErr != nil {
			return nil, fmt.Errorf("parse previous price: %w", convErr)
		}
		if rec.CurrentBRL, convErr = decimal.NewFromString(currentStr); convErr != nil {
			return nil, fmt.Errorf("parse current price: %w", convErr)
		}
		if rec.ChangePct, convErr = decimal.NewFromString(changeStr); convErr != nil {
			return nil, fmt.Errorf("parse change pct: %w", convErr)
		}
		if rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr); convErr != nil {
			return nil, fmt.Errorf("parse threshold pct: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanQuoteSample(rows pgx.Rows) (QuoteSample, error) {
	var (
		sample     QuoteSample
		arabicaStr string
		conilonStr string
	)

	if err := rows.Scan(
		&sample.CapturedAt,
		&sample.ReferenceDate,
		&arabicaStr,
		&conilonStr,
		&sample.MarketOpen,
		&sample.Source,
		&sample.CreatedAt,
	); err != nil {
		return QuoteSample{}, err
	}

	var err error
	if sample.ArabicaBRL, err = decimal.NewFromString(arabicaStr); err != nil {
		return QuoteSample{}, fmt.Errorf("parse arabica price: %w", err)
	}
	if sample.ConilonBRL, err = decimal.NewFromString(conilonStr); err != nil {
		return QuoteSample{}, fmt.Errorf("parse conilon price: %w", err)
	}

	return sample, nil
}
