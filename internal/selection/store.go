package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minqi/bottomfisher/internal/contracts"
)

// Store persists funnel and band-calculator output keyed by date.
// ⭐ SSOT: 选股结果存取只在这里
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new selection store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ contracts.SelectionStore = (*Store)(nil)

// SaveSelection records a day's surviving candidates and per-stage survivor
// counts. Idempotent per date: the date's existing rows are deleted first,
// then the new set is inserted, in one transaction.
func (s *Store) SaveSelection(ctx context.Context, date time.Time, result *contracts.SelectionResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "DELETE FROM selection.comprehensive_selections WHERE select_date = $1", date)
	if err != nil {
		return fmt.Errorf("failed to delete old selections: %w", err)
	}
	_, err = tx.Exec(ctx, "DELETE FROM selection.stage_counts WHERE select_date = $1", date)
	if err != nil {
		return fmt.Errorf("failed to delete old stage counts: %w", err)
	}

	insertCandidate := `
		INSERT INTO selection.comprehensive_selections (
			select_date, stock_code, stock_name, close, change_pct,
			turnover_rate, volume_ratio, float_cap, total_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, c := range result.Candidates {
		_, err := tx.Exec(ctx, insertCandidate,
			date, c.Code, c.Name, c.Close, c.ChangePct,
			c.TurnoverRate, c.VolumeRatio, c.FloatCap, c.TotalScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	insertStage := `
		INSERT INTO selection.stage_counts (select_date, stage, stage_name, survivors)
		VALUES ($1, $2, $3, $4)
	`
	for _, sc := range result.StageCounts {
		_, err := tx.Exec(ctx, insertStage, date, sc.Stage, sc.Name, sc.Survivors)
		if err != nil {
			return fmt.Errorf("failed to insert stage count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SaveBands records a day's retracement bands, overwriting any existing rows
// for the date.
func (s *Store) SaveBands(ctx context.Context, date time.Time, bands map[string]contracts.RetracementBand) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "DELETE FROM selection.outperform_stocks WHERE band_date = $1", date)
	if err != nil {
		return fmt.Errorf("failed to delete old bands: %w", err)
	}

	query := `
		INSERT INTO selection.outperform_stocks (
			band_date, stock_code, p_close, open, close, high, low,
			high_after_low, low_after_high,
			hc, hd, hx, ha, lc, ld, lx, la, no
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`
	for _, b := range bands {
		_, err := tx.Exec(ctx, query,
			date, b.Code, b.PrevClose, b.Open, b.Close, b.High, b.Low,
			b.HighAfterLow, b.LowAfterHigh,
			b.HighClass, b.HighDrift, b.HighRetrace, b.HighAvg,
			b.LowClass, b.LowDrift, b.LowRetrace, b.LowAvg, b.No,
		)
		if err != nil {
			return fmt.Errorf("failed to insert band: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RecentCounts returns per-day selection counts for the most recent days,
// newest first.
func (s *Store) RecentCounts(ctx context.Context, days int) ([]contracts.DailyCount, error) {
	query := `
		SELECT select_date, COUNT(*)
		FROM selection.comprehensive_selections
		GROUP BY select_date
		ORDER BY select_date DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent counts: %w", err)
	}
	defer rows.Close()

	counts := make([]contracts.DailyCount, 0, days)
	for rows.Next() {
		var c contracts.DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

// Selection returns the ordered instrument list recorded for a date. An
// unrecorded date yields an empty list, not an error.
func (s *Store) Selection(ctx context.Context, date time.Time) ([]string, error) {
	query := `
		SELECT stock_code
		FROM selection.comprehensive_selections
		WHERE select_date = $1
		ORDER BY total_score DESC, stock_code ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query selection: %w", err)
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return codes, nil
}

// Bands returns the stored retracement bands for a date keyed by instrument
func (s *Store) Bands(ctx context.Context, date time.Time) (map[string]contracts.RetracementBand, error) {
	query := `
		SELECT stock_code, p_close, open, close, high, low,
		       high_after_low, low_after_high,
		       hc, hd, hx, ha, lc, ld, lx, la, no
		FROM selection.outperform_stocks
		WHERE band_date = $1
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	bands := make(map[string]contracts.RetracementBand)
	for rows.Next() {
		b := contracts.RetracementBand{Date: date}
		err := rows.Scan(
			&b.Code, &b.PrevClose, &b.Open, &b.Close, &b.High, &b.Low,
			&b.HighAfterLow, &b.LowAfterHigh,
			&b.HighClass, &b.HighDrift, &b.HighRetrace, &b.HighAvg,
			&b.LowClass, &b.LowDrift, &b.LowRetrace, &b.LowAvg, &b.No,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		bands[b.Code] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bands, nil
}
