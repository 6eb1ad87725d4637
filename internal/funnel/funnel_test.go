package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/logger"
)

type fakeProvider struct {
	daily        map[string][]contracts.Candle
	fundamentals map[string]map[string]float64
}

func (f *fakeProvider) DailyCandles(_ context.Context, code string, _ time.Time, count int) ([]contracts.Candle, error) {
	candles := f.daily[code]
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}

func (f *fakeProvider) IntradayCandles(_ context.Context, _ string, _ time.Time, _ int) ([]contracts.Candle, error) {
	return nil, nil
}

func (f *fakeProvider) Fundamentals(_ context.Context, field string, codes []string, _ time.Time) (map[string]float64, error) {
	values := make(map[string]float64)
	for _, code := range codes {
		if v, ok := f.fundamentals[field][code]; ok {
			values[code] = v
		}
	}
	return values, nil
}

func (f *fakeProvider) TradeDays(_ context.Context, _ time.Time, _ int) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeProvider) AllCodes(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

// history builds 60 daily candles. The closes slice supplies the last
// len(closes) closing prices; earlier closes follow the given ramp. The
// volumes slice supplies the last len(volumes) volumes; earlier days get the
// first volume value.
func history(startClose, step float64, closes []float64, volumes []float64) []contracts.Candle {
	const days = 60
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	candles := make([]contracts.Candle, days)
	for i := 0; i < days; i++ {
		c := startClose + step*float64(i)
		if j := i - (days - len(closes)); j >= 0 {
			c = closes[j]
		}
		v := volumes[0]
		if j := i - (days - len(volumes)); j >= 0 {
			v = volumes[j]
		}
		candles[i] = contracts.Candle{
			Open:       c,
			Close:      c,
			High:       c,
			Low:        c,
			Volume:     v,
			Timestamp:  base.AddDate(0, 0, i),
			Resolution: contracts.ResolutionDaily,
		}
	}
	return candles
}

func risingVolumes() []float64 { return []float64{100, 100, 100, 100, 150} }

func newTestFunnel(provider contracts.PriceProvider) *Funnel {
	log := logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
	return NewFunnel(provider, DefaultConfig(), log)
}

func fullProvider() *fakeProvider {
	return &fakeProvider{
		daily: map[string][]contracts.Candle{
			// Passes every stage: +4% move, volume ratio 1.5, rising MAs.
			"GOOD": history(10, 0.1, []float64{20.0, 20.8}, risingVolumes()),
			// 0% move, fails stage 1.
			"FLAT": history(10, 0.1, []float64{20.0, 20.0}, risingVolumes()),
			// Fails stage 3 on turnover.
			"HIGHTURN": history(10, 0.1, []float64{20.0, 20.8}, risingVolumes()),
			// Fails stage 4 on float cap.
			"SMALLCAP": history(10, 0.1, []float64{20.0, 20.8}, risingVolumes()),
			// Latest volume below the 5-day average, fails stage 5.
			"VOLDOWN": history(10, 0.1, []float64{20.0, 20.8}, []float64{200, 200, 200, 100, 100}),
			// Downtrending MAs, fails stage 6.
			"MADOWN": history(40, -0.35, []float64{20.0, 20.8}, risingVolumes()),
			// Benchmark: +1% on the day.
			"000300.XSHG": history(100, 0, []float64{100, 101}, []float64{1000}),
		},
		fundamentals: map[string]map[string]float64{
			contracts.FieldTurnoverRatio: {
				"GOOD": 7, "FLAT": 7, "HIGHTURN": 15, "SMALLCAP": 7, "VOLDOWN": 7, "MADOWN": 7,
			},
			contracts.FieldFloatCap: {
				"GOOD": 100, "FLAT": 100, "HIGHTURN": 100, "SMALLCAP": 10, "VOLDOWN": 100, "MADOWN": 100,
			},
		},
	}
}

func TestSelectNarrowsMonotonically(t *testing.T) {
	f := newTestFunnel(fullProvider())

	universe := []string{"GOOD", "FLAT", "HIGHTURN", "SMALLCAP", "VOLDOWN", "MADOWN", "MISSING"}
	date := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	result, err := f.Select(context.Background(), date, universe)
	require.NoError(t, err)

	require.Len(t, result.StageCounts, 7)

	wantSurvivors := []int{5, 5, 4, 3, 2, 1, 1}
	wantNames := []string{
		"daily_move", "volume_ratio", "turnover", "float_cap",
		"volume_trend", "ma_stack", "relative_strength",
	}
	for i, sc := range result.StageCounts {
		assert.Equal(t, i+1, sc.Stage)
		assert.Equal(t, wantNames[i], sc.Name)
		assert.Equal(t, wantSurvivors[i], sc.Survivors, "stage %d", i+1)
	}

	// Monotonic narrowing: each stage only removes candidates
	for i := 1; i < len(result.StageCounts); i++ {
		assert.LessOrEqual(t, result.StageCounts[i].Survivors, result.StageCounts[i-1].Survivors)
	}

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "GOOD", result.Candidates[0].Code)
	assert.InDelta(t, 4.0, result.Candidates[0].ChangePct, 1e-9)
}

func TestStageDailyMoveInclusiveBounds(t *testing.T) {
	f := newTestFunnel(&fakeProvider{})

	in := []contracts.ScreeningCandidate{
		{Code: "AT_MIN", ChangePct: 3.0},
		{Code: "AT_MAX", ChangePct: 5.0},
		{Code: "BELOW", ChangePct: 2.999},
		{Code: "ABOVE", ChangePct: 5.001},
		{Code: "MID", ChangePct: 4.2},
	}

	out := f.stageDailyMove(context.Background(), time.Time{}, in)

	codes := make([]string, 0, len(out))
	for _, c := range out {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"AT_MIN", "AT_MAX", "MID"}, codes)
}

func TestStageTurnoverInclusiveBounds(t *testing.T) {
	f := newTestFunnel(&fakeProvider{})

	in := []contracts.ScreeningCandidate{
		{Code: "AT_MIN", TurnoverRate: 5.0},
		{Code: "AT_MAX", TurnoverRate: 10.0},
		{Code: "LOW", TurnoverRate: 4.9},
		{Code: "HIGH", TurnoverRate: 10.1},
	}

	out := f.stageTurnover(context.Background(), time.Time{}, in)
	require.Len(t, out, 2)
	assert.Equal(t, "AT_MIN", out[0].Code)
	assert.Equal(t, "AT_MAX", out[1].Code)
}

func TestStageVolumeTrendReordersNewestFirst(t *testing.T) {
	// Provider returning newest-first candles: the stage must reorder
	// before computing the trend.
	base := time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC)
	volumes := []float64{150, 100, 100, 100, 100} // newest first
	newestFirst := make([]contracts.Candle, len(volumes))
	for i, v := range volumes {
		newestFirst[i] = contracts.Candle{
			Close:      20,
			Volume:     v,
			Timestamp:  base.AddDate(0, 0, -i),
			Resolution: contracts.ResolutionDaily,
		}
	}

	provider := &fakeProvider{daily: map[string][]contracts.Candle{"GOOD": newestFirst}}
	f := newTestFunnel(provider)

	in := []contracts.ScreeningCandidate{{Code: "GOOD"}}
	out := f.stageVolumeTrend(context.Background(), time.Time{}, in)
	require.Len(t, out, 1)
}

func TestStageVolumeTrendMissingHistoryExcludes(t *testing.T) {
	short := history(10, 0.1, []float64{20.0, 20.8}, risingVolumes())[:3]
	provider := &fakeProvider{daily: map[string][]contracts.Candle{"SHORT": short}}
	f := newTestFunnel(provider)

	in := []contracts.ScreeningCandidate{{Code: "SHORT"}, {Code: "ABSENT"}}
	out := f.stageVolumeTrend(context.Background(), time.Time{}, in)
	assert.Empty(t, out)
}

func TestStageRelativeStrengthDropsLaggards(t *testing.T) {
	// Benchmark up 4.5% on the day; a +4.0% candidate lags it.
	provider := fullProvider()
	provider.daily["000300.XSHG"] = history(100, 0, []float64{100, 104.5}, []float64{1000})
	f := newTestFunnel(provider)

	in := []contracts.ScreeningCandidate{
		{Code: "GOOD", ChangePct: 4.0},
		{Code: "STRONG", ChangePct: 4.8},
	}
	out := f.stageRelativeStrength(context.Background(), time.Time{}, in)
	require.Len(t, out, 1)
	assert.Equal(t, "STRONG", out[0].Code)
}

func TestStageRelativeStrengthWithoutBenchmarkFailsAll(t *testing.T) {
	f := newTestFunnel(&fakeProvider{})

	in := []contracts.ScreeningCandidate{{Code: "GOOD", ChangePct: 4.0}}
	out := f.stageRelativeStrength(context.Background(), time.Time{}, in)
	assert.Empty(t, out)
}
