package funnel

import (
	"context"
	"time"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// Config holds the funnel's stage thresholds
// SSOT: 默认值与原始选股策略一致
type Config struct {
	// Stage 1: 涨幅筛选 (%)
	MinChangePct float64
	MaxChangePct float64

	// Stage 2: 量比筛选
	MinVolumeRatio float64

	// Stage 3: 换手率筛选 (%)
	MinTurnover float64
	MaxTurnover float64

	// Stage 4: 流通市值筛选 (亿)
	MinFloatCap float64
	MaxFloatCap float64

	// Stage 5: 成交量趋势筛选
	VolumeTrendDays  int     // lookback window
	BlowOffDropRatio float64 // third-day drop threshold vs second day

	// Stage 7: 跑赢大盘
	BenchmarkCode string
}

// DefaultConfig returns the original strategy thresholds
func DefaultConfig() Config {
	return Config{
		MinChangePct:     3.0,
		MaxChangePct:     5.0,
		MinVolumeRatio:   1.0,
		MinTurnover:      5.0,
		MaxTurnover:      10.0,
		MinFloatCap:      50.0,
		MaxFloatCap:      200.0,
		VolumeTrendDays:  5,
		BlowOffDropRatio: 0.95,
		BenchmarkCode:    "000300.XSHG",
	}
}

// Funnel narrows a stock universe through an ordered sequence of filter
// stages. Each stage receives only the survivors of the previous stage and
// reports its survivor count, the audit trail operators use to tune
// thresholds stage by stage.
// ⭐ SSOT: 多级选股漏斗只在这里
type Funnel struct {
	provider contracts.PriceProvider
	config   Config
	logger   *logger.Logger
}

// NewFunnel creates a new screening funnel
func NewFunnel(provider contracts.PriceProvider, config Config, log *logger.Logger) *Funnel {
	return &Funnel{
		provider: provider,
		config:   config,
		logger:   log,
	}
}

// Select runs the seven stages in order over the universe for a trading day.
// An instrument whose data cannot be retrieved at some stage fails that
// stage; it never aborts the run.
func (f *Funnel) Select(ctx context.Context, date time.Time, universe []string) (*contracts.SelectionResult, error) {
	result := &contracts.SelectionResult{
		Date:        date,
		StageCounts: make([]contracts.StageCount, 0, 7),
	}

	candidates := f.buildCandidates(ctx, date, universe)

	f.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"universe": len(universe),
		"pool":     len(candidates),
	}).Info("Screening started")

	stages := []struct {
		name  string
		apply func(context.Context, time.Time, []contracts.ScreeningCandidate) []contracts.ScreeningCandidate
	}{
		{"daily_move", f.stageDailyMove},
		{"volume_ratio", f.stageVolumeRatio},
		{"turnover", f.stageTurnover},
		{"float_cap", f.stageFloatCap},
		{"volume_trend", f.stageVolumeTrend},
		{"ma_stack", f.stageMAStack},
		{"relative_strength", f.stageRelativeStrength},
	}

	for i, stage := range stages {
		candidates = stage.apply(ctx, date, candidates)
		result.StageCounts = append(result.StageCounts, contracts.StageCount{
			Stage:     i + 1,
			Name:      stage.name,
			Survivors: len(candidates),
		})
		f.logger.WithFields(map[string]interface{}{
			"stage":     i + 1,
			"name":      stage.name,
			"survivors": len(candidates),
		}).Info("Stage completed")
	}

	result.Candidates = candidates
	return result, nil
}

// buildCandidates assembles the initial pool: close, percent change, volume
// ratio from the last two daily candles plus turnover and float cap from
// fundamentals. Instruments without two daily candles never enter the pool.
func (f *Funnel) buildCandidates(ctx context.Context, date time.Time, universe []string) []contracts.ScreeningCandidate {
	turnover, err := f.provider.Fundamentals(ctx, contracts.FieldTurnoverRatio, universe, date)
	if err != nil {
		f.logger.WithError(err).Warn("Turnover fundamentals fetch failed")
		turnover = map[string]float64{}
	}

	floatCap, err := f.provider.Fundamentals(ctx, contracts.FieldFloatCap, universe, date)
	if err != nil {
		f.logger.WithError(err).Warn("Float cap fundamentals fetch failed")
		floatCap = map[string]float64{}
	}

	candidates := make([]contracts.ScreeningCandidate, 0, len(universe))
	for _, code := range universe {
		daily, err := f.provider.DailyCandles(ctx, code, date, 2)
		if err != nil || len(daily) < 2 {
			continue
		}

		prev, cur := daily[len(daily)-2], daily[len(daily)-1]

		candidates = append(candidates, contracts.ScreeningCandidate{
			Code:         code,
			Close:        cur.Close,
			ChangePct:    (cur.Close - prev.Close) / prev.Close * 100,
			VolumeRatio:  cur.Volume / prev.Volume,
			TurnoverRate: turnover[code],
			FloatCap:     floatCap[code],
		})
	}

	return candidates
}

// Stage 1: 涨幅在 [3%, 5%] 之间 (边界含)
func (f *Funnel) stageDailyMove(_ context.Context, _ time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	out := in[:0:0]
	for _, c := range in {
		if c.ChangePct >= f.config.MinChangePct && c.ChangePct <= f.config.MaxChangePct {
			out = append(out, c)
		}
	}
	return out
}

// Stage 2: 量比 >= 1
func (f *Funnel) stageVolumeRatio(_ context.Context, _ time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	out := in[:0:0]
	for _, c := range in {
		if c.VolumeRatio >= f.config.MinVolumeRatio {
			out = append(out, c)
		}
	}
	return out
}

// Stage 3: 换手率在 [5%, 10%] 之间
func (f *Funnel) stageTurnover(_ context.Context, _ time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	out := in[:0:0]
	for _, c := range in {
		if c.TurnoverRate >= f.config.MinTurnover && c.TurnoverRate <= f.config.MaxTurnover {
			out = append(out, c)
		}
	}
	return out
}

// Stage 4: 流通市值在 [50, 200] 亿之间
func (f *Funnel) stageFloatCap(_ context.Context, _ time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	out := in[:0:0]
	for _, c := range in {
		if c.FloatCap >= f.config.MinFloatCap && c.FloatCap <= f.config.MaxFloatCap {
			out = append(out, c)
		}
	}
	return out
}

// Stage 5: 成交量趋势向上且无放量冲顶形态.
// 最新成交量需高于5日均量; 任一3日窗口内连续两日放量后第三日缩量到
// 第二日的95%以下则整体剔除.
func (f *Funnel) stageVolumeTrend(ctx context.Context, date time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	days := f.config.VolumeTrendDays

	out := in[:0:0]
	for _, c := range in {
		daily, err := f.provider.DailyCandles(ctx, c.Code, date, days)
		if err != nil || len(daily) != days {
			continue
		}

		// 确保旧→新
		volumes := make([]float64, len(daily))
		for i, bar := range daily {
			volumes[i] = bar.Volume
		}
		if daily[0].Timestamp.After(daily[len(daily)-1].Timestamp) {
			for i, j := 0, len(volumes)-1; i < j; i, j = i+1, j-1 {
				volumes[i], volumes[j] = volumes[j], volumes[i]
			}
		}

		var sum float64
		for _, v := range volumes {
			sum += v
		}
		sma := sum / float64(days)
		trendUp := volumes[len(volumes)-1] > sma

		badPattern := false
		for i := 0; i+2 < len(volumes); i++ {
			rising := volumes[i+1] > volumes[i] && volumes[i+2] > volumes[i+1]
			dropped := volumes[i+2] < f.config.BlowOffDropRatio*volumes[i+1]
			if rising && dropped {
				badPattern = true
				break
			}
		}

		if trendUp && !badPattern {
			out = append(out, c)
		}
	}
	return out
}

// Stage 6: 均线多头发散. MA5 > MA10 > MA20 > MA60 且收盘价站上全部均线.
func (f *Funnel) stageMAStack(ctx context.Context, date time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	out := in[:0:0]
	for _, c := range in {
		daily, err := f.provider.DailyCandles(ctx, c.Code, date, 60)
		if err != nil || len(daily) < 60 {
			continue
		}

		closes := make([]float64, len(daily))
		for i, bar := range daily {
			closes[i] = bar.Close
		}

		ma5 := tailMean(closes, 5)
		ma10 := tailMean(closes, 10)
		ma20 := tailMean(closes, 20)
		ma60 := tailMean(closes, 60)
		lastClose := closes[len(closes)-1]

		if ma5 > ma10 && ma10 > ma20 && ma20 > ma60 &&
			lastClose > ma5 && lastClose > ma10 && lastClose > ma20 && lastClose > ma60 {
			out = append(out, c)
		}
	}
	return out
}

// Stage 7: 跑赢大盘. 个股涨幅需高于基准指数同日涨幅.
func (f *Funnel) stageRelativeStrength(ctx context.Context, date time.Time, in []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	daily, err := f.provider.DailyCandles(ctx, f.config.BenchmarkCode, date, 2)
	if err != nil || len(daily) < 2 {
		f.logger.WithField("benchmark", f.config.BenchmarkCode).Warn("Benchmark data unavailable, stage fails all candidates")
		return in[:0:0]
	}

	prev, cur := daily[len(daily)-2], daily[len(daily)-1]
	benchmarkChange := (cur.Close - prev.Close) / prev.Close * 100

	out := in[:0:0]
	for _, c := range in {
		if c.ChangePct > benchmarkChange {
			out = append(out, c)
		}
	}
	return out
}

// tailMean averages the last n values
func tailMean(values []float64, n int) float64 {
	tail := values[len(values)-n:]
	var sum float64
	for _, v := range tail {
		sum += v
	}
	return sum / float64(n)
}
