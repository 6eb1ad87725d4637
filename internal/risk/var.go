// Package risk contains pure risk calculations over return series.
// ⭐ SSOT: 本包只做计算, 数据采集和持仓组装由上层负责
package risk

import (
	"fmt"
	"math"
	"sort"
)

// HistoricalVaR calculates Value at Risk by historical simulation.
// returns 为日收益率序列 (正=盈利, 负=亏损), confidence 为置信水平.
// 返回的 VaR/CVaR 以正数表示损失.
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// VaR = (1-confidence) 分位数, 例如 95% VaR 取最差 5% 分位
	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	varValue := 0.0
	if sorted[idx] < 0 {
		varValue = -sorted[idx]
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        varValue,
		CVaR:       tailLoss(sorted, idx),
	}
}

// tailLoss averages the losses at or below the VaR index
func tailLoss(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := 0; i <= varIdx && i < len(sorted); i++ {
		sum += sorted[i]
		count++
	}
	if count == 0 {
		return 0
	}

	avg := sum / float64(count)
	if avg < 0 {
		return -avg
	}
	return 0
}

// zScores maps supported confidence levels to standard normal quantiles
var zScores = map[float64]float64{
	0.90: 1.2816,
	0.95: 1.6449,
	0.99: 2.3263,
}

// ParametricVaR calculates VaR under a normal-distribution assumption
func ParametricVaR(mean, stdDev, confidence float64) (VaRResult, error) {
	z, ok := zScores[confidence]
	if !ok {
		return VaRResult{}, fmt.Errorf("unsupported confidence level %.2f", confidence)
	}

	// 正态假设下 CVaR = -(mean - stdDev*φ(z)/(1-confidence))
	varValue := -(mean - z*stdDev)
	phi := math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)
	cvarValue := -(mean - stdDev*phi/(1.0-confidence))

	if varValue < 0 {
		varValue = 0
	}
	if cvarValue < 0 {
		cvarValue = 0
	}

	return VaRResult{Confidence: confidence, VaR: varValue, CVaR: cvarValue}, nil
}

// Mean calculates the arithmetic mean of a return series
func Mean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// Stddev calculates the population standard deviation of a return series
func Stddev(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := Mean(returns)
	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(returns)))
}

// Percentiles returns the requested percentiles of a return series
func Percentiles(returns []float64, points []int) map[int]float64 {
	result := make(map[int]float64, len(points))
	if len(returns) == 0 {
		return result
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	for _, p := range points {
		idx := int(math.Floor(float64(p) / 100.0 * float64(len(sorted))))
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		result[p] = sorted[idx]
	}
	return result
}

// CheckLimits compares realized risk figures against configured limits and
// returns one message per violated limit
func CheckLimits(v VaRResult, maxDrawdown float64, limits Limits) []string {
	var violations []string

	if v.VaR > limits.MaxVaR95 {
		violations = append(violations,
			fmt.Sprintf("VaR95 %.4f exceeds limit %.4f", v.VaR, limits.MaxVaR95))
	}
	if v.CVaR > limits.MaxCVaR95 {
		violations = append(violations,
			fmt.Sprintf("CVaR95 %.4f exceeds limit %.4f", v.CVaR, limits.MaxCVaR95))
	}
	if maxDrawdown > limits.MaxDrawdown {
		violations = append(violations,
			fmt.Sprintf("max drawdown %.4f exceeds limit %.4f", maxDrawdown, limits.MaxDrawdown))
	}

	return violations
}
