package risk

import (
	"fmt"
	"math/rand"
	"time"
)

// Simulator projects holding-period outcomes by bootstrap resampling of
// realized daily returns
type Simulator struct {
	config MonteCarloConfig
	rng    *rand.Rand
}

// NewSimulator creates a new Monte Carlo simulator
func NewSimulator(config MonteCarloConfig) *Simulator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Project resamples the daily return series into holding-period outcomes.
// 样本不足 MinSamples 时 fail-closed 直接报错, 不给出不可靠的估计.
func (s *Simulator) Project(dailyReturns []float64) (*Projection, error) {
	if len(dailyReturns) < s.config.MinSamples {
		return nil, fmt.Errorf("insufficient samples: %d < %d", len(dailyReturns), s.config.MinSamples)
	}
	if s.config.NumSimulations <= 0 || s.config.HoldingPeriod <= 0 {
		return nil, fmt.Errorf("invalid simulation config: %+v", s.config)
	}

	outcomes := make([]float64, s.config.NumSimulations)
	for i := range outcomes {
		// 持有期内每日随机重抽一个历史收益率, 复利累积
		cumulative := 1.0
		for d := 0; d < s.config.HoldingPeriod; d++ {
			cumulative *= 1 + dailyReturns[s.rng.Intn(len(dailyReturns))]
		}
		outcomes[i] = cumulative - 1
	}

	var95 := HistoricalVaR(outcomes, 0.95)
	var99 := HistoricalVaR(outcomes, 0.99)

	return &Projection{
		Config:      s.config,
		SampleCount: len(dailyReturns),
		MeanReturn:  Mean(outcomes),
		StdDev:      Stddev(outcomes),
		VaR95:       var95.VaR,
		VaR99:       var99.VaR,
		CVaR95:      var95.CVaR,
		CVaR99:      var99.CVaR,
		Percentiles: Percentiles(outcomes, []int{1, 5, 10, 25, 50, 75, 90, 95, 99}),
	}, nil
}
