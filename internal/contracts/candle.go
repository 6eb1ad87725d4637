package contracts

import "time"

// Resolution identifies the time resolution of a candle series
type Resolution string

const (
	ResolutionDaily  Resolution = "daily"
	ResolutionMinute Resolution = "minute"
)

// Candle is one OHLCV observation at a fixed resolution
// Immutable once retrieved from a provider.
type Candle struct {
	Open       float64    `json:"open"`
	Close      float64    `json:"close"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Volume     float64    `json:"volume"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolution Resolution `json:"resolution"`
}

// SessionMinutes is the number of one-minute bars in a full A-share session
// (09:30-11:30, 13:00-15:00).
const SessionMinutes = 240
