package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/minqi/bottomfisher/internal/bands"
	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/internal/ledger"
	"github.com/minqi/bottomfisher/internal/risk"
	"github.com/minqi/bottomfisher/internal/selection"
	"github.com/minqi/bottomfisher/internal/trader"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// SelectionSource supplies the instrument shortlist recorded for a date.
// Both the Postgres selection store and a file-based watchlist satisfy it.
type SelectionSource interface {
	Selection(ctx context.Context, date time.Time) ([]string, error)
}

// WatchlistSource adapts a parsed watchlist file to SelectionSource
type WatchlistSource struct {
	List selection.Watchlist
}

// Selection returns the watchlist entry for a date
func (w WatchlistSource) Selection(_ context.Context, date time.Time) ([]string, error) {
	return w.List.For(date), nil
}

// Config holds backtest configuration
type Config struct {
	StartDate    time.Time
	EndDate      time.Time
	InitialCash  float64
	MaxPositions int
	Trading      trader.Config
	MonteCarlo   risk.MonteCarloConfig
}

// DefaultConfig returns the original replay parameters
func DefaultConfig() Config {
	return Config{
		InitialCash:  1_000_000,
		MaxPositions: 5,
		Trading:      trader.DefaultConfig(),
		MonteCarlo:   risk.DefaultMonteCarloConfig(),
	}
}

// Result holds backtest results
type Result struct {
	StartDate   time.Time
	EndDate     time.Time
	TradingDays int

	InitialCash float64
	FinalAssets float64

	TotalReturn float64
	CAGR        float64
	Volatility  float64
	SharpeRatio float64
	MaxDrawdown float64

	VaR95      float64
	CVaR95     float64
	Projection *risk.Projection

	EquityCurve []EquityPoint
}

// EquityPoint is one day's mark on the equity curve
type EquityPoint struct {
	Date   time.Time
	Equity float64
	Return float64
}

// Engine replays the daily trading cycle over a historical date range.
// Every run builds a fresh ledger and trader, so runs over different ranges
// are independent.
// ⭐ SSOT: 回测执行只在这里
type Engine struct {
	provider contracts.PriceProvider
	source   SelectionSource
	logger   *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(provider contracts.PriceProvider, source SelectionSource, log *logger.Logger) *Engine {
	return &Engine{
		provider: provider,
		source:   source,
		logger:   log,
	}
}

// Run executes a backtest over [StartDate, EndDate]
func (e *Engine) Run(ctx context.Context, config Config) (*Result, error) {
	e.logger.WithFields(map[string]interface{}{
		"start_date":   config.StartDate.Format("2006-01-02"),
		"end_date":     config.EndDate.Format("2006-01-02"),
		"initial_cash": config.InitialCash,
	}).Info("Starting backtest")

	days, err := e.tradeDays(ctx, config.StartDate, config.EndDate)
	if err != nil {
		return nil, err
	}
	if len(days) < 2 {
		return nil, fmt.Errorf("not enough trading days between %s and %s",
			config.StartDate.Format("2006-01-02"), config.EndDate.Format("2006-01-02"))
	}

	led := ledger.NewSimulator(config.InitialCash, config.MaxPositions, e.logger)
	calc := bands.NewCalculator(e.provider, e.logger)
	eng := trader.NewEngine(e.provider, calc, led, config.Trading, e.logger)

	result := &Result{
		StartDate:   days[0],
		EndDate:     days[len(days)-1],
		InitialCash: config.InitialCash,
		EquityCurve: make([]EquityPoint, 0, len(days)),
	}

	// 第一天只做基准点, 从第二天起按前一日选股交易
	for i := 1; i < len(days); i++ {
		date, prevDay := days[i], days[i-1]

		picks, err := e.source.Selection(ctx, prevDay)
		if err != nil {
			e.logger.WithError(err).WithField("date", prevDay.Format("2006-01-02")).Warn("Selection lookup failed")
			picks = nil
		}

		if err := eng.RunDay(ctx, date, prevDay, picks); err != nil {
			e.logger.WithError(err).WithField("date", date.Format("2006-01-02")).Warn("Trading day failed")
		}

		summary := led.Summarize()
		result.EquityCurve = append(result.EquityCurve, EquityPoint{
			Date:   date,
			Equity: summary.TotalAssets,
			Return: summary.ReturnPct / 100,
		})
	}

	result.TradingDays = len(result.EquityCurve)
	result.FinalAssets = led.Summarize().TotalAssets

	e.calculateMetrics(result)
	e.assessRisk(result, config.MonteCarlo)

	e.logger.WithFields(map[string]interface{}{
		"trading_days": result.TradingDays,
		"total_return": fmt.Sprintf("%.2f%%", result.TotalReturn*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", result.SharpeRatio),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.MaxDrawdown*100),
	}).Info("Backtest completed")

	return result, nil
}

// tradeDays resolves the trading calendar between two dates, oldest first
func (e *Engine) tradeDays(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	span := int(end.Sub(start).Hours()/24) + 1
	if span < 1 {
		return nil, fmt.Errorf("end date before start date")
	}

	all, err := e.provider.TradeDays(ctx, end, span)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade calendar: %w", err)
	}

	days := make([]time.Time, 0, len(all))
	for _, d := range all {
		if !d.Before(start) && !d.After(end) {
			days = append(days, d)
		}
	}
	return days, nil
}

// calculateMetrics derives performance metrics from the equity curve
func (e *Engine) calculateMetrics(result *Result) {
	if len(result.EquityCurve) == 0 {
		return
	}

	result.TotalReturn = (result.FinalAssets - result.InitialCash) / result.InitialCash

	years := result.EndDate.Sub(result.StartDate).Hours() / 24 / 365.25
	if years > 0 {
		result.CAGR = math.Pow(result.FinalAssets/result.InitialCash, 1.0/years) - 1.0
	}

	// A股年交易日约 244 天
	result.Volatility = stddev(dailyReturns(result.EquityCurve)) * math.Sqrt(244)

	if result.Volatility > 0 && years > 0 {
		annualized := result.TotalReturn / years
		result.SharpeRatio = annualized / result.Volatility
	}

	result.MaxDrawdown = maxDrawdown(result.EquityCurve)
}

// assessRisk computes realized VaR/CVaR and a holding-period projection
// from the equity curve's daily returns
func (e *Engine) assessRisk(result *Result, mc risk.MonteCarloConfig) {
	returns := dailyReturns(result.EquityCurve)
	if len(returns) == 0 {
		return
	}

	v := risk.HistoricalVaR(returns, 0.95)
	result.VaR95 = v.VaR
	result.CVaR95 = v.CVaR

	for _, violation := range risk.CheckLimits(v, result.MaxDrawdown, risk.DefaultLimits()) {
		e.logger.WithField("violation", violation).Warn("Risk limit exceeded")
	}

	proj, err := risk.NewSimulator(mc).Project(returns)
	if err != nil {
		e.logger.WithError(err).Debug("Monte Carlo projection skipped")
		return
	}
	result.Projection = proj
}

// dailyReturns derives day-over-day returns from the equity curve
func dailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

// stddev calculates the standard deviation of a return series
func stddev(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// maxDrawdown calculates the maximum peak-to-trough drop of the curve
func maxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	worst := 0.0
	peak := curve[0].Equity

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		drawdown := (peak - point.Equity) / peak
		if drawdown > worst {
			worst = drawdown
		}
	}

	return worst
}
