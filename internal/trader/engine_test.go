package trader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/bottomfisher/internal/bands"
	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/internal/ledger"
	"github.com/minqi/bottomfisher/internal/lifecycle"
	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/logger"
)

type fakeProvider struct {
	daily     map[string][]contracts.Candle
	intraday  map[string][]contracts.Candle
	tradeDays []time.Time
}

func (f *fakeProvider) DailyCandles(_ context.Context, code string, _ time.Time, count int) ([]contracts.Candle, error) {
	candles := f.daily[code]
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}

func (f *fakeProvider) IntradayCandles(_ context.Context, code string, _ time.Time, _ int) ([]contracts.Candle, error) {
	return f.intraday[code], nil
}

func (f *fakeProvider) Fundamentals(_ context.Context, _ string, _ []string, _ time.Time) (map[string]float64, error) {
	return nil, nil
}

func (f *fakeProvider) TradeDays(_ context.Context, _ time.Time, _ int) ([]time.Time, error) {
	return f.tradeDays, nil
}

func (f *fakeProvider) AllCodes(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func dailySeries(closes ...float64) []contracts.Candle {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]contracts.Candle, len(closes))
	for i, c := range closes {
		candles[i] = contracts.Candle{
			Open: c, Close: c, High: c, Low: c,
			Timestamp:  base.AddDate(0, 0, i),
			Resolution: contracts.ResolutionDaily,
		}
	}
	return candles
}

func tradeDaysAround(date time.Time, back int) []time.Time {
	days := make([]time.Time, 0, back+1)
	for i := back; i >= 0; i-- {
		days = append(days, date.AddDate(0, 0, -i))
	}
	return days
}

func newTestEngine(provider *fakeProvider, led *ledger.Simulator) *Engine {
	log := testLogger()
	calc := bands.NewCalculator(provider, log)
	return NewEngine(provider, calc, led, DefaultConfig(), log)
}

func TestRunExitsStopLossOnDecline(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	daily := dailySeries(10.9, 10.5, 10.3, 10.1)
	daily[len(daily)-1].Open = 10.2 // 止损按开盘价成交

	provider := &fakeProvider{
		daily:     map[string][]contracts.Candle{"600519.XSHG": daily},
		tradeDays: tradeDaysAround(date, 5),
	}

	led := ledger.NewSimulator(1_000_000, 5, testLogger())
	require.True(t, led.Buy("600519.XSHG", 11.00, 0, date, 11.55))
	led.Position("600519.XSHG").OpenedDate = date.AddDate(0, 0, -4)

	e := newTestEngine(provider, led)
	e.states["600519.XSHG"] = lifecycle.HoldToSell

	e.runExits(context.Background(), date)

	assert.False(t, led.Has("600519.XSHG"))
	s, ok := e.State("600519.XSHG")
	require.True(t, ok)
	// HoldToSell has no force-exit edge, state is held.
	assert.Equal(t, lifecycle.HoldToSell, s)
}

func TestRunExitsMaxHoldingPeriod(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	// Rising closes, no decline pattern; held past the max period.
	daily := dailySeries(9.8, 9.9, 10.0, 10.1)
	daily[len(daily)-1].High = 10.5 // 盘中触及成本价

	provider := &fakeProvider{
		daily:     map[string][]contracts.Candle{"600519.XSHG": daily},
		tradeDays: tradeDaysAround(date, 6),
	}

	led := ledger.NewSimulator(1_000_000, 5, testLogger())
	require.True(t, led.Buy("600519.XSHG", 10.40, 0, date, 10.92))
	led.Position("600519.XSHG").OpenedDate = date.AddDate(0, 0, -6)

	e := newTestEngine(provider, led)
	e.states["600519.XSHG"] = lifecycle.HoldAtMaxDays

	cashBefore := led.Cash()
	e.runExits(context.Background(), date)

	assert.False(t, led.Has("600519.XSHG"))
	// Cleared at cost: cash restored to the pre-buy level.
	assert.InDelta(t, cashBefore+10.40*float64(19200/100*100), led.Cash(), 1)

	s, _ := e.State("600519.XSHG")
	assert.Equal(t, lifecycle.NewToOpen, s)
}

func TestRunExitsTakeProfitAtTarget(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	daily := dailySeries(10.0, 10.1, 10.2, 10.3)
	daily[len(daily)-1].High = 10.60 // 触及 10.0×1.05

	provider := &fakeProvider{
		daily:     map[string][]contracts.Candle{"600519.XSHG": daily},
		tradeDays: tradeDaysAround(date, 2),
	}

	led := ledger.NewSimulator(1_000_000, 5, testLogger())
	require.True(t, led.Buy("600519.XSHG", 10.00, 0, date, 10.50))
	led.Position("600519.XSHG").OpenedDate = date.AddDate(0, 0, -1)

	e := newTestEngine(provider, led)
	e.states["600519.XSHG"] = lifecycle.HoldAtHigh

	e.runExits(context.Background(), date)

	assert.False(t, led.Has("600519.XSHG"))
	s, _ := e.State("600519.XSHG")
	assert.Equal(t, lifecycle.CloseAtTarget, s)
}

func TestRunExitsHoldAndMark(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	daily := dailySeries(10.0, 10.1, 10.0, 10.2)

	provider := &fakeProvider{
		daily:     map[string][]contracts.Candle{"600519.XSHG": daily},
		tradeDays: tradeDaysAround(date, 2),
	}

	led := ledger.NewSimulator(1_000_000, 5, testLogger())
	require.True(t, led.Buy("600519.XSHG", 10.00, 0, date, 10.50))
	led.Position("600519.XSHG").OpenedDate = date.AddDate(0, 0, -1)

	e := newTestEngine(provider, led)
	e.states["600519.XSHG"] = lifecycle.Open

	e.runExits(context.Background(), date)

	require.True(t, led.Has("600519.XSHG"))
	assert.InDelta(t, 10.2, led.Position("600519.XSHG").CurrentPrice, 1e-9)

	s, _ := e.State("600519.XSHG")
	assert.Equal(t, lifecycle.HoldToSell, s)
}

func TestRunEntriesLimitBuyAtBand(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	prevDay := date.AddDate(0, 0, -1)

	// Band fixture: la = 10.58; the day's low trades through it.
	daily := []contracts.Candle{
		{Open: 9.8, Close: 10.0, High: 10.1, Low: 9.7, Resolution: contracts.ResolutionDaily},
		{Open: 10.2, Close: 10.8, High: 11.0, Low: 10.0, Resolution: contracts.ResolutionDaily},
	}
	intraday := []contracts.Candle{
		{High: 10.4, Low: 10.0, Resolution: contracts.ResolutionMinute},
		{High: 11.0, Low: 10.55, Resolution: contracts.ResolutionMinute},
	}

	provider := &fakeProvider{
		daily:     map[string][]contracts.Candle{"600519.XSHG": daily},
		intraday:  map[string][]contracts.Candle{"600519.XSHG": intraday},
		tradeDays: tradeDaysAround(date, 2),
	}

	led := ledger.NewSimulator(1_000_000, 5, testLogger())
	e := newTestEngine(provider, led)

	e.runEntries(context.Background(), date, prevDay, []string{"600519.XSHG"})

	require.True(t, led.Has("600519.XSHG"))
	pos := led.Position("600519.XSHG")
	assert.InDelta(t, 10.58, pos.EntryPrice, 1e-9)
	assert.Greater(t, pos.Shares, int64(0))

	s, ok := e.State("600519.XSHG")
	require.True(t, ok)
	assert.Equal(t, lifecycle.Open, s)
}

func TestRunEntriesSkipsHeldAndUnfilled(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	prevDay := date.AddDate(0, 0, -1)

	// Band price la = 10.04 while the day's low is 10.75: the limit never
	// fills.
	daily := []contracts.Candle{
		{Open: 9.8, Close: 10.0, High: 10.1, Low: 9.7, Resolution: contracts.ResolutionDaily},
		{Open: 11.0, Close: 10.0, High: 11.2, Low: 10.75, Resolution: contracts.ResolutionDaily},
	}
	intraday := []contracts.Candle{
		{High: 11.2, Low: 10.8, Resolution: contracts.ResolutionMinute},
		{High: 11.0, Low: 10.75, Resolution: contracts.ResolutionMinute},
	}

	provider := &fakeProvider{
		daily:     map[string][]contracts.Candle{"000001.XSHE": daily},
		intraday:  map[string][]contracts.Candle{"000001.XSHE": intraday},
		tradeDays: tradeDaysAround(date, 2),
	}

	led := ledger.NewSimulator(1_000_000, 5, testLogger())
	e := newTestEngine(provider, led)

	e.runEntries(context.Background(), date, prevDay, []string{"000001.XSHE"})
	assert.False(t, led.Has("000001.XSHE"))
}
