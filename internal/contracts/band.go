package contracts

import "time"

// RetracementBand holds the reference prices derived from one day's session
// for one instrument. All derived prices are rounded to 2 decimals at
// production time; consumers must not re-derive with full precision.
// ⭐ SSOT: 回撤价格带只由 internal/bands 计算
type RetracementBand struct {
	Code string    `json:"code"`
	Date time.Time `json:"date"`

	// Raw session values
	PrevClose    float64 `json:"p_close"`        // 前收
	Open         float64 `json:"open"`
	Close        float64 `json:"close"`
	High         float64 `json:"high"`           // realized intraday high
	Low          float64 `json:"low"`            // realized intraday low
	HighAfterLow float64 `json:"high_after_low"` // 最低价之后的最高价
	LowAfterHigh float64 `json:"low_after_high"` // 最高价之后的最低价

	// Derived reference prices (原始记法: hc/hd/hx/ha, lc/ld/lx/la)
	HighClass   float64 `json:"hc"`
	HighDrift   float64 `json:"hd"`
	HighRetrace float64 `json:"hx"`
	HighAvg     float64 `json:"ha"`
	LowClass    float64 `json:"lc"`
	LowDrift    float64 `json:"ld"`
	LowRetrace  float64 `json:"lx"`
	LowAvg      float64 `json:"la"`

	// Normalized open score: (open/p_close)*close
	No float64 `json:"no"`
}
