package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minqi/bottomfisher/internal/contracts"
)

// Repository writes collected market data into the data.* tables.
// ⭐ SSOT: 行情数据写入只在这里
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new market-data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveDailyCandles upserts daily candles for one instrument
func (r *Repository) SaveDailyCandles(ctx context.Context, code string, candles []contracts.Candle) error {
	query := `
		INSERT INTO data.daily_prices (stock_code, trade_date, open, close, high, low, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			close = EXCLUDED.close,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			volume = EXCLUDED.volume
	`

	for _, c := range candles {
		_, err := r.pool.Exec(ctx, query, code, c.Timestamp, c.Open, c.Close, c.High, c.Low, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to upsert daily candle: %w", err)
		}
	}
	return nil
}

// SaveMinuteCandles upserts one-minute candles for one instrument
func (r *Repository) SaveMinuteCandles(ctx context.Context, code string, candles []contracts.Candle) error {
	query := `
		INSERT INTO data.minute_prices (stock_code, bar_time, open, close, high, low, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, bar_time) DO UPDATE SET
			open = EXCLUDED.open,
			close = EXCLUDED.close,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			volume = EXCLUDED.volume
	`

	for _, c := range candles {
		_, err := r.pool.Exec(ctx, query, code, c.Timestamp, c.Open, c.Close, c.High, c.Low, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to upsert minute candle: %w", err)
		}
	}
	return nil
}

// SaveFundamentals upserts one fundamental field for a set of instruments
func (r *Repository) SaveFundamentals(ctx context.Context, field string, date time.Time, values map[string]float64) error {
	var column string
	switch field {
	case contracts.FieldTurnoverRatio:
		column = "turnover_ratio"
	case contracts.FieldFloatCap:
		column = "circulating_market_cap"
	default:
		return fmt.Errorf("unknown fundamental field: %s", field)
	}

	query := fmt.Sprintf(`
		INSERT INTO data.daily_fundamentals (stock_code, trade_date, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET %s = EXCLUDED.%s
	`, column, column, column)

	for code, value := range values {
		if _, err := r.pool.Exec(ctx, query, code, date, value); err != nil {
			return fmt.Errorf("failed to upsert fundamental: %w", err)
		}
	}
	return nil
}

// SaveIndustryMembers replaces an industry board's member list
func (r *Repository) SaveIndustryMembers(ctx context.Context, board string, codes []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM data.industry_members WHERE board = $1", board); err != nil {
		return fmt.Errorf("failed to delete old members: %w", err)
	}

	for _, code := range codes {
		_, err := tx.Exec(ctx,
			"INSERT INTO data.industry_members (board, stock_code) VALUES ($1, $2)",
			board, code,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
