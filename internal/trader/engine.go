package trader

import (
	"context"
	"time"

	"github.com/minqi/bottomfisher/internal/bands"
	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/internal/ledger"
	"github.com/minqi/bottomfisher/internal/lifecycle"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// Config holds the trading-cycle rules
type Config struct {
	MaxHoldDays  int     // 最大持仓交易日数
	DeclineDays  int     // 连续下跌止损天数
	TargetFactor float64 // 止盈价 = 成本 × TargetFactor
}

// DefaultConfig returns the original strategy trading rules
func DefaultConfig() Config {
	return Config{
		MaxHoldDays:  5,
		DeclineDays:  3,
		TargetFactor: 1.05,
	}
}

// Engine runs one simulated trading day: pre-open exit checks on held
// positions, then limit entries from the previous day's selection. Each
// instrument receives exactly one lifecycle transition per cycle.
// ⭐ SSOT: 每日交易循环只在这里
type Engine struct {
	provider contracts.PriceProvider
	calc     *bands.Calculator
	ledger   *ledger.Simulator
	config   Config
	logger   *logger.Logger

	states map[string]lifecycle.State
}

// NewEngine creates a trading engine over a ledger
func NewEngine(provider contracts.PriceProvider, calc *bands.Calculator, led *ledger.Simulator, config Config, log *logger.Logger) *Engine {
	return &Engine{
		provider: provider,
		calc:     calc,
		ledger:   led,
		config:   config,
		logger:   log,
		states:   make(map[string]lifecycle.State),
	}
}

// State returns the lifecycle state tracked for an instrument
func (e *Engine) State(code string) (lifecycle.State, bool) {
	s, ok := e.states[code]
	return s, ok
}

// RunDay processes one trading day. selection is the previous day's funnel
// output; prevDay is that previous trading day (bands are computed from it).
func (e *Engine) RunDay(ctx context.Context, date, prevDay time.Time, selection []string) error {
	e.runExits(ctx, date)
	e.runEntries(ctx, date, prevDay, selection)
	return nil
}

// runExits applies the pre-open exit rules to every held position:
//  1. 连续3日收盘下跌且均低于成本 ⇒ 开盘价止损
//  2. 持仓达到最大天数 ⇒ 成本价(或收盘价)清仓
//  3. 否则挂成本×1.05限价止盈单
func (e *Engine) runExits(ctx context.Context, date time.Time) {
	for _, pos := range e.ledger.Holdings() {
		daily, err := e.provider.DailyCandles(ctx, pos.Code, date, e.config.DeclineDays+1)
		if err != nil || len(daily) == 0 {
			e.logger.WithField("code", pos.Code).Warn("No daily candle for exit check")
			continue
		}
		today := daily[len(daily)-1]

		held := e.tradeDaysHeld(ctx, pos.OpenedDate, date)

		switch {
		case held >= e.config.DeclineDays && e.decliningBelowCost(daily, pos.EntryPrice):
			profit, _ := e.ledger.Sell(pos.Code, today.Open)
			e.transition(pos.Code, lifecycle.ForceExit)
			e.logger.WithFields(map[string]interface{}{
				"code":       pos.Code,
				"price":      today.Open,
				"profit_pct": profit,
			}).Info("Stop-loss exit on sustained decline")

		case held >= e.config.MaxHoldDays:
			// 到期清仓: 盘中能到成本价就按成本出, 否则收盘价出.
			price := today.Close
			if today.High >= pos.EntryPrice {
				price = pos.EntryPrice
			}
			profit, _ := e.ledger.Sell(pos.Code, price)
			e.transition(pos.Code, lifecycle.ForceExit)
			e.logger.WithFields(map[string]interface{}{
				"code":       pos.Code,
				"price":      price,
				"profit_pct": profit,
			}).Info("Max holding period exit")

		default:
			target := pos.EntryPrice * e.config.TargetFactor
			if today.High >= target {
				profit, _ := e.ledger.Sell(pos.Code, target)
				e.transition(pos.Code, lifecycle.ForceExit)
				e.logger.WithFields(map[string]interface{}{
					"code":       pos.Code,
					"price":      target,
					"profit_pct": profit,
				}).Info("Take-profit exit at target")
			} else {
				e.ledger.Mark(pos.Code, today.Close)
				e.transition(pos.Code, lifecycle.Advance)
			}
		}
	}
}

// runEntries places limit buys at the low-average band price for each newly
// selected instrument; a buy fills when the day's low trades through it.
func (e *Engine) runEntries(ctx context.Context, date, prevDay time.Time, selection []string) {
	fresh := make([]string, 0, len(selection))
	for _, code := range selection {
		if !e.ledger.Has(code) {
			fresh = append(fresh, code)
		}
	}
	if len(fresh) == 0 {
		return
	}

	bandSet, err := e.calc.Compute(ctx, prevDay, fresh)
	if err != nil {
		e.logger.WithError(err).Warn("Band computation failed, skipping entries")
		return
	}

	for _, code := range fresh {
		band, ok := bandSet[code]
		if !ok {
			continue
		}

		daily, err := e.provider.DailyCandles(ctx, code, date, 1)
		if err != nil || len(daily) == 0 {
			continue
		}
		today := daily[len(daily)-1]

		// 限价单: 当日最低价触及 la 才成交
		if today.Low > band.LowAvg {
			continue
		}

		clearDate := date.AddDate(0, 0, e.config.MaxHoldDays)
		target := band.LowAvg * e.config.TargetFactor
		if e.ledger.Buy(code, band.LowAvg, 0, clearDate, target) {
			e.states[code] = lifecycle.Open
			e.logger.WithFields(map[string]interface{}{
				"code":  code,
				"price": band.LowAvg,
			}).Info("Limit buy filled")
		}
	}
}

// decliningBelowCost reports whether the last DeclineDays closes are strictly
// declining and all below the entry price.
func (e *Engine) decliningBelowCost(daily []contracts.Candle, cost float64) bool {
	n := e.config.DeclineDays
	if len(daily) < n {
		return false
	}

	tail := daily[len(daily)-n:]
	for i, bar := range tail {
		if bar.Close >= cost {
			return false
		}
		if i > 0 && bar.Close >= tail[i-1].Close {
			return false
		}
	}
	return true
}

// tradeDaysHeld counts trading days strictly after the open date up to date
func (e *Engine) tradeDaysHeld(ctx context.Context, opened, date time.Time) int {
	days, err := e.provider.TradeDays(ctx, date, e.config.MaxHoldDays+1)
	if err != nil {
		return 0
	}

	held := 0
	for _, d := range days {
		if d.After(opened) && !d.After(date) {
			held++
		}
	}
	return held
}

// transition applies exactly one lifecycle transition to an instrument's
// tracked state; instruments without a tracked state are ignored.
func (e *Engine) transition(code string, fn func(lifecycle.State) (lifecycle.State, bool)) {
	s, ok := e.states[code]
	if !ok {
		return
	}
	if next, ok := fn(s); ok {
		e.states[code] = next
	}
}
