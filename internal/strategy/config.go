// Package strategy loads and validates the strategy parameter file.
// ⭐ SSOT: 策略参数只在 YAML 文件里, 代码内不再散落阈值
package strategy

import (
	"github.com/minqi/bottomfisher/internal/funnel"
	"github.com/minqi/bottomfisher/internal/trader"
)

// Config is the full strategy parameter set
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Screening Screening `yaml:"screening" json:"screening"`
	Trading   Trading   `yaml:"trading" json:"trading"`
	Backtest  Backtest  `yaml:"backtest" json:"backtest"`
}

// Meta 元信息
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Range 闭区间 [Min, Max]
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies inside the range
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Screening 漏斗各级阈值
type Screening struct {
	ChangePct        Range   `yaml:"change_pct" json:"change_pct"`                 // 涨幅区间 (%)
	MinVolumeRatio   float64 `yaml:"min_volume_ratio" json:"min_volume_ratio"`     // 量比下限
	TurnoverPct      Range   `yaml:"turnover_pct" json:"turnover_pct"`             // 换手率区间 (%)
	FloatCapBillion  Range   `yaml:"float_cap_billion" json:"float_cap_billion"`   // 流通市值区间 (亿)
	VolumeTrendDays  int     `yaml:"volume_trend_days" json:"volume_trend_days"`   // 量趋势回看天数
	BlowOffDropRatio float64 `yaml:"blow_off_drop_ratio" json:"blow_off_drop_ratio"`
	BenchmarkCode    string  `yaml:"benchmark_code" json:"benchmark_code"`
}

// Trading 交易规则
type Trading struct {
	MaxHoldDays  int     `yaml:"max_hold_days" json:"max_hold_days"`
	DeclineDays  int     `yaml:"decline_days" json:"decline_days"`
	TargetFactor float64 `yaml:"target_factor" json:"target_factor"`
}

// Backtest 回测资金设置
type Backtest struct {
	InitialCash  float64 `yaml:"initial_cash" json:"initial_cash"`
	MaxPositions int     `yaml:"max_positions" json:"max_positions"`
}

// FunnelConfig converts the screening section to funnel thresholds
func (c *Config) FunnelConfig() funnel.Config {
	return funnel.Config{
		MinChangePct:     c.Screening.ChangePct.Min,
		MaxChangePct:     c.Screening.ChangePct.Max,
		MinVolumeRatio:   c.Screening.MinVolumeRatio,
		MinTurnover:      c.Screening.TurnoverPct.Min,
		MaxTurnover:      c.Screening.TurnoverPct.Max,
		MinFloatCap:      c.Screening.FloatCapBillion.Min,
		MaxFloatCap:      c.Screening.FloatCapBillion.Max,
		VolumeTrendDays:  c.Screening.VolumeTrendDays,
		BlowOffDropRatio: c.Screening.BlowOffDropRatio,
		BenchmarkCode:    c.Screening.BenchmarkCode,
	}
}

// TraderConfig converts the trading section to trading rules
func (c *Config) TraderConfig() trader.Config {
	return trader.Config{
		MaxHoldDays:  c.Trading.MaxHoldDays,
		DeclineDays:  c.Trading.DeclineDays,
		TargetFactor: c.Trading.TargetFactor,
	}
}

// Default returns the built-in strategy parameters, identical to the
// shipped config/strategy/bottomfisher_v1.yaml
func Default() *Config {
	fc := funnel.DefaultConfig()
	tc := trader.DefaultConfig()

	return &Config{
		Meta: Meta{
			StrategyID: "bottomfisher_v1",
			Version:    "1.0",
			Timezone:   "Asia/Shanghai",
		},
		Screening: Screening{
			ChangePct:        Range{Min: fc.MinChangePct, Max: fc.MaxChangePct},
			MinVolumeRatio:   fc.MinVolumeRatio,
			TurnoverPct:      Range{Min: fc.MinTurnover, Max: fc.MaxTurnover},
			FloatCapBillion:  Range{Min: fc.MinFloatCap, Max: fc.MaxFloatCap},
			VolumeTrendDays:  fc.VolumeTrendDays,
			BlowOffDropRatio: fc.BlowOffDropRatio,
			BenchmarkCode:    fc.BenchmarkCode,
		},
		Trading: Trading{
			MaxHoldDays:  tc.MaxHoldDays,
			DeclineDays:  tc.DeclineDays,
			TargetFactor: tc.TargetFactor,
		},
		Backtest: Backtest{
			InitialCash:  1_000_000,
			MaxPositions: 5,
		},
	}
}
