package bands

import (
	"context"
	"math"
	"time"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// Calculator derives retracement price bands from a day's candles.
// Both the post-hoc candlestick analytics and the entry-decision flow share
// this one implementation so they get byte-identical numbers.
// ⭐ SSOT: 价格带计算只在这里
type Calculator struct {
	provider contracts.PriceProvider
	logger   *logger.Logger
}

// NewCalculator creates a new band calculator
func NewCalculator(provider contracts.PriceProvider, log *logger.Logger) *Calculator {
	return &Calculator{
		provider: provider,
		logger:   log,
	}
}

// Compute calculates retracement bands for each instrument on a trading day.
// Instruments with missing daily history or an undefined intraday high/low
// are dropped from the result, never reported as errors.
func (c *Calculator) Compute(ctx context.Context, date time.Time, codes []string) (map[string]contracts.RetracementBand, error) {
	result := make(map[string]contracts.RetracementBand, len(codes))

	// 分钟数据取到当日收盘后 (16:00)
	sessionEnd := time.Date(date.Year(), date.Month(), date.Day(), 16, 0, 0, 0, date.Location())

	for _, code := range codes {
		daily, err := c.provider.DailyCandles(ctx, code, date, 2)
		if err != nil {
			c.logger.WithError(err).WithField("code", code).Warn("Daily candles fetch failed")
			continue
		}
		if len(daily) < 2 {
			c.logger.WithField("code", code).Debug("Not enough daily history, dropping")
			continue
		}

		intraday, err := c.provider.IntradayCandles(ctx, code, sessionEnd, contracts.SessionMinutes)
		if err != nil {
			c.logger.WithError(err).WithField("code", code).Warn("Intraday candles fetch failed")
			continue
		}

		band, ok := ComputeBand(daily, intraday)
		if !ok {
			c.logger.WithField("code", code).Debug("Undefined intraday high/low, dropping")
			continue
		}

		band.Code = code
		band.Date = date
		result[code] = band
	}

	c.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"requested": len(codes),
		"computed":  len(result),
	}).Info("Retracement bands computed")

	return result, nil
}

// ComputeBand derives the band for one instrument from its last two daily
// candles (prior day first) and the day's minute candles. Returns false when
// the intraday high or low is undefined.
//
// When several minute bars tie for the session high or low, the LAST one
// wins; the post-extreme swing points are measured from that bar onward.
func ComputeBand(daily []contracts.Candle, intraday []contracts.Candle) (contracts.RetracementBand, bool) {
	var band contracts.RetracementBand

	if len(daily) < 2 || len(intraday) == 0 {
		return band, false
	}

	p := daily[len(daily)-2] // 前一交易日
	c := daily[len(daily)-1] // 当日

	high := math.Inf(-1)
	low := math.Inf(1)
	highLine, lowLine := 0, 0
	for i, bar := range intraday {
		if math.IsNaN(bar.High) || math.IsNaN(bar.Low) {
			continue
		}
		// >= : 最后一个最高/最低位优先
		if bar.High >= high {
			high = bar.High
			highLine = i
		}
		if bar.Low <= low {
			low = bar.Low
			lowLine = i
		}
	}

	if math.IsInf(high, -1) || math.IsInf(low, 1) || math.IsNaN(high) || math.IsNaN(low) {
		return band, false
	}

	// 最低价之后的最高价 / 最高价之后的最低价
	highAfterLow := math.Inf(-1)
	for _, bar := range intraday[lowLine:] {
		if bar.High > highAfterLow {
			highAfterLow = bar.High
		}
	}
	lowAfterHigh := math.Inf(1)
	for _, bar := range intraday[highLine:] {
		if bar.Low < lowAfterHigh {
			lowAfterHigh = bar.Low
		}
	}

	// 公式用日线的 high/low; band 里存的是分钟级实际高低点
	hc := round2((c.High / p.Close) * c.Close)
	hd := round2((c.High / c.Open) * c.Close)
	// hx = (最低价后高点/最低价) * 当日收盘
	hx := round2((highAfterLow / c.Low) * c.Close)
	ha := round2((hc + hd + hx) / 3)

	lc := round2((c.Low / c.Open) * c.Close)
	ld := round2((c.Low / p.Close) * c.Close)
	// lx = (最高价后低点/当日最高) * 当日收盘
	lx := round2((lowAfterHigh / c.High) * c.Close)
	la := round2((lc + ld + lx) / 3)

	band = contracts.RetracementBand{
		PrevClose:    p.Close,
		Open:         c.Open,
		Close:        c.Close,
		High:         high,
		Low:          low,
		HighAfterLow: highAfterLow,
		LowAfterHigh: lowAfterHigh,
		HighClass:    hc,
		HighDrift:    hd,
		HighRetrace:  hx,
		HighAvg:      ha,
		LowClass:     lc,
		LowDrift:     ld,
		LowRetrace:   lx,
		LowAvg:       la,
		No:           round2((c.Open / p.Close) * c.Close),
	}

	return band, true
}

// round2 rounds to 2 decimal places. Part of the band contract: values are
// rounded at production time and never re-derived downstream.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
