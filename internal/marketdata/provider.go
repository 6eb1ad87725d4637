package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/logger"
	"github.com/minqi/bottomfisher/pkg/redis"
)

// Provider implements contracts.PriceProvider over the data.* tables, with
// an optional read-through Redis cache for daily candles.
// ⭐ SSOT: 行情数据读取只在这里
type Provider struct {
	pool   *pgxpool.Pool
	cache  *redis.Cache
	logger *logger.Logger
}

// NewProvider creates a Postgres-backed price provider. cache may be nil.
func NewProvider(pool *pgxpool.Pool, cache *redis.Cache, log *logger.Logger) *Provider {
	return &Provider{
		pool:   pool,
		cache:  cache,
		logger: log,
	}
}

var _ contracts.PriceProvider = (*Provider)(nil)

// DailyCandles returns up to count daily candles ending at end, oldest first
func (p *Provider) DailyCandles(ctx context.Context, code string, end time.Time, count int) ([]contracts.Candle, error) {
	key := redis.DailyKey(code, end.Format("2006-01-02"), count)
	if p.cache != nil {
		var cached []contracts.Candle
		hit, err := p.cache.Get(ctx, key, &cached)
		if err != nil {
			p.logger.WithError(err).Warn("Daily candle cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	query := `
		SELECT open, close, high, low, volume, trade_date
		FROM data.daily_prices
		WHERE stock_code = $1 AND trade_date <= $2
		ORDER BY trade_date DESC
		LIMIT $3
	`

	rows, err := p.pool.Query(ctx, query, code, end, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows, contracts.ResolutionDaily)
	if err != nil {
		return nil, err
	}
	reverse(candles)

	if p.cache != nil && len(candles) > 0 {
		if err := p.cache.Set(ctx, key, candles, redis.TTLDaily); err != nil {
			p.logger.WithError(err).Warn("Daily candle cache write failed")
		}
	}

	return candles, nil
}

// IntradayCandles returns up to count one-minute candles for the session
// ending at end, oldest first.
func (p *Provider) IntradayCandles(ctx context.Context, code string, end time.Time, count int) ([]contracts.Candle, error) {
	query := `
		SELECT open, close, high, low, volume, bar_time
		FROM data.minute_prices
		WHERE stock_code = $1 AND bar_time <= $2
		ORDER BY bar_time DESC
		LIMIT $3
	`

	rows, err := p.pool.Query(ctx, query, code, end, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query minute prices: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows, contracts.ResolutionMinute)
	if err != nil {
		return nil, err
	}
	reverse(candles)

	return candles, nil
}

// Fundamentals returns one fundamental field for a set of instruments on a
// date. Instruments without data are absent from the map, never an error.
func (p *Provider) Fundamentals(ctx context.Context, field string, codes []string, date time.Time) (map[string]float64, error) {
	var column string
	switch field {
	case contracts.FieldTurnoverRatio:
		column = "turnover_ratio"
	case contracts.FieldFloatCap:
		column = "circulating_market_cap"
	default:
		return nil, fmt.Errorf("unknown fundamental field: %s", field)
	}

	query := fmt.Sprintf(`
		SELECT stock_code, %s
		FROM data.daily_fundamentals
		WHERE stock_code = ANY($1) AND trade_date = $2 AND %s IS NOT NULL
	`, column, column)

	rows, err := p.pool.Query(ctx, query, codes, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamentals: %w", err)
	}
	defer rows.Close()

	values := make(map[string]float64, len(codes))
	for rows.Next() {
		var code string
		var value float64
		if err := rows.Scan(&code, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values[code] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return values, nil
}

// TradeDays returns the last count trading days ending at end, oldest first
func (p *Provider) TradeDays(ctx context.Context, end time.Time, count int) ([]time.Time, error) {
	query := `
		SELECT trade_date
		FROM data.trade_calendar
		WHERE trade_date <= $1 AND is_open
		ORDER BY trade_date DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, end, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade calendar: %w", err)
	}
	defer rows.Close()

	days := make([]time.Time, 0, count)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days, nil
}

// AllCodes returns the instrument universe listed on a date
func (p *Provider) AllCodes(ctx context.Context, date time.Time) ([]string, error) {
	query := `
		SELECT stock_code
		FROM data.stocks
		WHERE listed_date <= $1 AND (delisted_date IS NULL OR delisted_date > $1)
		ORDER BY stock_code
	`

	rows, err := p.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
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

type candleRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCandles(rows candleRows, resolution contracts.Resolution) ([]contracts.Candle, error) {
	candles := make([]contracts.Candle, 0)
	for rows.Next() {
		c := contracts.Candle{Resolution: resolution}
		if err := rows.Scan(&c.Open, &c.Close, &c.High, &c.Low, &c.Volume, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return candles, nil
}

func reverse(candles []contracts.Candle) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
