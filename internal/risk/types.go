package risk

// VaRResult is the outcome of a VaR calculation.
// ⭐ SSOT: VaR/CVaR 以正数表示损失 (VaR=0.05 → 可能损失 5%)
// 全系统统一使用该符号约定
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 置信水平 (0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (损失, 正数)
	CVaR       float64 `json:"cvar"`       // Conditional VaR / Expected Shortfall (正数)
}

// MonteCarloConfig holds the Monte Carlo projection settings.
// ⭐ SSOT: 为保证可复现, 所有参数显式记录
type MonteCarloConfig struct {
	NumSimulations int   `json:"num_simulations"` // 模拟次数
	HoldingPeriod  int   `json:"holding_period"`  // 持有期 (交易日)
	Seed           int64 `json:"seed"`            // 随机种子 (0=随机)
	MinSamples     int   `json:"min_samples"`     // 最少输入样本数 (fail-closed)
}

// DefaultMonteCarloConfig returns the default projection settings.
// 持有期与交易规则的最大持仓天数一致.
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		NumSimulations: 10000,
		HoldingPeriod:  5,
		Seed:           0,
		MinSamples:     30,
	}
}

// Projection is the result of a Monte Carlo holding-period projection
type Projection struct {
	Config      MonteCarloConfig `json:"config"` // 记录参数, 保证可复现
	SampleCount int              `json:"sample_count"`
	MeanReturn  float64          `json:"mean_return"`
	StdDev      float64          `json:"std_dev"`
	VaR95       float64          `json:"var_95"`
	VaR99       float64          `json:"var_99"`
	CVaR95      float64          `json:"cvar_95"`
	CVaR99      float64          `json:"cvar_99"`
	Percentiles map[int]float64  `json:"percentiles"`
}

// Limits holds risk limits checked against a finished equity curve
type Limits struct {
	MaxVaR95    float64 `json:"max_var_95"`
	MaxCVaR95   float64 `json:"max_cvar_95"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// DefaultLimits returns the default risk limits
func DefaultLimits() Limits {
	return Limits{
		MaxVaR95:    0.05,
		MaxCVaR95:   0.07,
		MaxDrawdown: 0.15,
	}
}
