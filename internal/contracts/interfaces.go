package contracts

import (
	"context"
	"time"
)

// Fundamental field names understood by PriceProvider.Fundamentals
const (
	FieldTurnoverRatio = "turnover_ratio"         // 换手率
	FieldFloatCap      = "circulating_market_cap" // 流通市值 (亿)
)

// PriceProvider supplies historical price series, fundamentals and the
// trade-day calendar. All methods return empty results rather than erroring
// when data is unavailable for an instrument; callers treat empty as
// "exclude this instrument from this cycle".
// ⭐ SSOT: 行情数据访问接口
type PriceProvider interface {
	// DailyCandles returns up to count daily candles ending at end,
	// ordered oldest to newest.
	DailyCandles(ctx context.Context, code string, end time.Time, count int) ([]Candle, error)

	// IntradayCandles returns up to count one-minute candles for the
	// session ending at end, ordered oldest to newest.
	IntradayCandles(ctx context.Context, code string, end time.Time, count int) ([]Candle, error)

	// Fundamentals returns one fundamental field for a set of instruments
	// on a date. Instruments without data are absent from the map.
	Fundamentals(ctx context.Context, field string, codes []string, date time.Time) (map[string]float64, error)

	// TradeDays returns the last count trading days ending at end,
	// ordered oldest to newest.
	TradeDays(ctx context.Context, end time.Time, count int) ([]time.Time, error)

	// AllCodes returns the full instrument universe known on a date.
	AllCodes(ctx context.Context, date time.Time) ([]string, error)
}

// SelectionStore durably records funnel and band-calculator output keyed by
// date. Saving for a date that already has records deletes that date's rows
// first, then inserts; idempotent per date.
// ⭐ SSOT: 选股结果持久化接口
type SelectionStore interface {
	SaveSelection(ctx context.Context, date time.Time, result *SelectionResult) error
	SaveBands(ctx context.Context, date time.Time, bands map[string]RetracementBand) error
	RecentCounts(ctx context.Context, days int) ([]DailyCount, error)
	Selection(ctx context.Context, date time.Time) ([]string, error)
}
