package bands

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/logger"
)

func testDaily() []contracts.Candle {
	return []contracts.Candle{
		{Open: 9.8, Close: 10.0, High: 10.1, Low: 9.7, Resolution: contracts.ResolutionDaily},
		{Open: 10.2, Close: 10.8, High: 11.0, Low: 10.0, Resolution: contracts.ResolutionDaily},
	}
}

// Session: low 10.0 only at bar 1, high 11.0 at bars 3 and 7.
// The later high bar must win the tie, so low-after-high starts at bar 7.
func testIntraday() []contracts.Candle {
	highs := []float64{10.4, 10.3, 10.6, 11.0, 10.8, 10.7, 10.9, 11.0, 10.9, 10.85}
	lows := []float64{10.2, 10.0, 10.4, 10.7, 10.5, 10.3, 10.6, 10.8, 10.55, 10.6}

	bars := make([]contracts.Candle, len(highs))
	for i := range highs {
		bars[i] = contracts.Candle{
			High:       highs[i],
			Low:        lows[i],
			Resolution: contracts.ResolutionMinute,
		}
	}
	return bars
}

func TestComputeBand(t *testing.T) {
	band, ok := ComputeBand(testDaily(), testIntraday())
	require.True(t, ok)

	assert.InDelta(t, 10.0, band.PrevClose, 1e-9)
	assert.InDelta(t, 10.2, band.Open, 1e-9)
	assert.InDelta(t, 10.8, band.Close, 1e-9)
	assert.InDelta(t, 11.0, band.High, 1e-9)
	assert.InDelta(t, 10.0, band.Low, 1e-9)

	// hc = (11/10)*10.8, hd = (11/10.2)*10.8, hx = (11/10)*10.8
	assert.InDelta(t, 11.88, band.HighClass, 1e-9)
	assert.InDelta(t, 11.65, band.HighDrift, 1e-9)
	assert.InDelta(t, 11.88, band.HighRetrace, 1e-9)
	assert.InDelta(t, 11.80, band.HighAvg, 1e-9)

	// lc = (10/10.2)*10.8, ld = (10/10)*10.8, lx = (10.55/11)*10.8
	assert.InDelta(t, 10.59, band.LowClass, 1e-9)
	assert.InDelta(t, 10.80, band.LowDrift, 1e-9)
	assert.InDelta(t, 10.36, band.LowRetrace, 1e-9)
	assert.InDelta(t, 10.58, band.LowAvg, 1e-9)

	// no = (10.2/10)*10.8
	assert.InDelta(t, 11.02, band.No, 1e-9)
}

func TestComputeBandTieBreakUsesLastExtreme(t *testing.T) {
	band, ok := ComputeBand(testDaily(), testIntraday())
	require.True(t, ok)

	// Low-after-high measured from bar 7 (the later 11.0 bar), not bar 3.
	// From bar 3 the minimum low would be 10.3.
	assert.InDelta(t, 10.55, band.LowAfterHigh, 1e-9)

	// High-after-low measured from the single low at bar 1.
	assert.InDelta(t, 11.0, band.HighAfterLow, 1e-9)
}

func TestComputeBandAverageOfStoredPrices(t *testing.T) {
	band, ok := ComputeBand(testDaily(), testIntraday())
	require.True(t, ok)

	wantHA := math.Round((band.HighClass+band.HighDrift+band.HighRetrace)/3*100) / 100
	wantLA := math.Round((band.LowClass+band.LowDrift+band.LowRetrace)/3*100) / 100

	assert.Equal(t, wantHA, band.HighAvg)
	assert.Equal(t, wantLA, band.LowAvg)
}

func TestComputeBandUndefinedExtremes(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name     string
		daily    []contracts.Candle
		intraday []contracts.Candle
	}{
		{
			name:     "empty intraday",
			daily:    testDaily(),
			intraday: nil,
		},
		{
			name:  "all NaN intraday",
			daily: testDaily(),
			intraday: []contracts.Candle{
				{High: nan, Low: nan},
				{High: nan, Low: nan},
			},
		},
		{
			name:     "single daily candle",
			daily:    testDaily()[1:],
			intraday: testIntraday(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ComputeBand(tt.daily, tt.intraday)
			assert.False(t, ok)
		})
	}
}

// fakeProvider serves canned candles for calculator tests
type fakeProvider struct {
	daily    map[string][]contracts.Candle
	intraday map[string][]contracts.Candle
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
	return nil, nil
}

func (f *fakeProvider) AllCodes(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func TestCalculatorComputeDropsIncompleteInstruments(t *testing.T) {
	provider := &fakeProvider{
		daily: map[string][]contracts.Candle{
			"600519.XSHG": testDaily(),
			"000001.XSHE": testDaily()[1:], // only one daily candle
		},
		intraday: map[string][]contracts.Candle{
			"600519.XSHG": testIntraday(),
			"000001.XSHE": testIntraday(),
		},
	}

	calc := NewCalculator(provider, testLogger())

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	result, err := calc.Compute(context.Background(), date, []string{"600519.XSHG", "000001.XSHE", "300750.XSHE"})
	require.NoError(t, err)

	// Only the fully-populated instrument survives; the others are dropped
	// silently, never reported as errors.
	require.Len(t, result, 1)

	band, ok := result["600519.XSHG"]
	require.True(t, ok)
	assert.Equal(t, "600519.XSHG", band.Code)
	assert.Equal(t, date, band.Date)
	assert.InDelta(t, 10.58, band.LowAvg, 1e-9)
}
