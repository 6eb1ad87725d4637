package ledger

import (
	"math"
	"time"

	"github.com/minqi/bottomfisher/pkg/logger"
)

// Lot is the minimum tradeable share increment on the A-share market.
const Lot = 100

// Position is one held stock. CurrentPrice is the only field mutated after
// the buy (mark-to-market); a sell removes the record entirely; realized
// profit is reported through Sell's return value, not stored here.
type Position struct {
	Code         string
	EntryPrice   float64
	Shares       int64
	CostBasis    float64
	OpenedDate   time.Time
	ClearDate    time.Time
	TargetPrice  float64
	CurrentPrice float64
}

// MarketValue returns the position's value at the last marked price
func (p *Position) MarketValue() float64 {
	return p.CurrentPrice * float64(p.Shares)
}

// Summary is a point-in-time portfolio valuation.
// CashUtilizationPct is cash/total_assets, the cash share of assets, kept
// under its historical name even though the label reads inverted.
type Summary struct {
	TotalAssets        float64 `json:"total_assets"`
	Cash               float64 `json:"cash"`
	MarketValue        float64 `json:"market_value"`
	ReturnPct          float64 `json:"return_percent"`
	CashUtilizationPct float64 `json:"cash_utilization_percent"`
}

// Simulator is the in-process cash/position ledger used when no live broker
// is wired. Single-writer: one trading loop mutates it per cycle; callers
// must serialize concurrent access themselves.
// ⭐ SSOT: 现金/持仓记账只在这里
type Simulator struct {
	initialCash  float64
	maxPositions int

	cash      float64
	positions map[string]*Position

	logger *logger.Logger
}

// NewSimulator creates a ledger with the given starting capital and a hard
// cap on concurrently held positions.
func NewSimulator(initialCash float64, maxPositions int, log *logger.Logger) *Simulator {
	return &Simulator{
		initialCash:  initialCash,
		maxPositions: maxPositions,
		cash:         initialCash,
		positions:    make(map[string]*Position),
		logger:       log,
	}
}

// maxSinglePosition: 单笔买入上限 = 初始资金 / 最大持仓数
func (s *Simulator) maxSinglePosition() float64 {
	return s.initialCash / float64(s.maxPositions)
}

// Buy attempts to open a position at price. intentCash caps how much of the
// budget this order may spend; pass 0 to use the full per-position budget.
// The effective budget is min(cash, initialCash/maxPositions, intentCash)
// and the share count is floored to a whole lot. Returns false, with no
// state change, when the position cap is reached, the instrument is already
// held, or the budget cannot buy one lot.
func (s *Simulator) Buy(code string, price float64, intentCash float64, clearDate time.Time, targetPrice float64) bool {
	if len(s.positions) >= s.maxPositions {
		s.logger.WithFields(map[string]interface{}{
			"code":          code,
			"max_positions": s.maxPositions,
		}).Warn("Buy rejected: position cap reached")
		return false
	}
	if _, held := s.positions[code]; held {
		s.logger.WithField("code", code).Warn("Buy rejected: already held")
		return false
	}

	available := math.Min(s.cash, s.maxSinglePosition())
	if intentCash > 0 {
		available = math.Min(available, intentCash)
	}

	shares := int64(available/price) / Lot * Lot
	if shares < Lot {
		s.logger.WithFields(map[string]interface{}{
			"code":      code,
			"price":     price,
			"available": available,
		}).Warn("Buy rejected: budget below one lot")
		return false
	}

	cost := price * float64(shares)
	s.cash -= cost
	s.positions[code] = &Position{
		Code:         code,
		EntryPrice:   price,
		Shares:       shares,
		CostBasis:    cost,
		OpenedDate:   time.Now(),
		ClearDate:    clearDate,
		TargetPrice:  targetPrice,
		CurrentPrice: price,
	}

	s.logger.WithFields(map[string]interface{}{
		"code":   code,
		"price":  price,
		"shares": shares,
		"cost":   cost,
		"cash":   s.cash,
	}).Info("Position opened")

	return true
}

// Sell closes the whole position at price and returns the realized profit
// percent. found is false, with no state change, when the instrument is not
// currently held; batch callers branch on it instead of erroring.
func (s *Simulator) Sell(code string, price float64) (profitPct float64, found bool) {
	pos, ok := s.positions[code]
	if !ok {
		return 0, false
	}

	proceeds := price * float64(pos.Shares)
	profitPct = (proceeds - pos.CostBasis) / pos.CostBasis * 100

	s.cash += proceeds
	delete(s.positions, code)

	s.logger.WithFields(map[string]interface{}{
		"code":       code,
		"price":      price,
		"shares":     pos.Shares,
		"profit_pct": profitPct,
		"cash":       s.cash,
	}).Info("Position closed")

	return profitPct, true
}

// Mark updates a held position's market price. Unknown instruments are
// ignored.
func (s *Simulator) Mark(code string, price float64) {
	if pos, ok := s.positions[code]; ok {
		pos.CurrentPrice = price
	}
}

// Has reports whether the instrument is currently held
func (s *Simulator) Has(code string) bool {
	_, ok := s.positions[code]
	return ok
}

// Position returns the held position for code, or nil
func (s *Simulator) Position(code string) *Position {
	return s.positions[code]
}

// Holdings returns the currently held positions
func (s *Simulator) Holdings() []*Position {
	holdings := make([]*Position, 0, len(s.positions))
	for _, pos := range s.positions {
		holdings = append(holdings, pos)
	}
	return holdings
}

// Cash returns the uninvested cash balance
func (s *Simulator) Cash() float64 {
	return s.cash
}

// Summarize recomputes market value from the held positions at their last
// marked prices. Invariant: cash + market_value == total_assets.
func (s *Simulator) Summarize() Summary {
	var marketValue float64
	for _, pos := range s.positions {
		marketValue += pos.MarketValue()
	}

	totalAssets := s.cash + marketValue

	summary := Summary{
		TotalAssets: totalAssets,
		Cash:        s.cash,
		MarketValue: marketValue,
		ReturnPct:   (totalAssets/s.initialCash - 1) * 100,
	}
	if totalAssets > 0 {
		summary.CashUtilizationPct = s.cash / totalAssets * 100
	}

	return summary
}
