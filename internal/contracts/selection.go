package contracts

import "time"

// ScreeningCandidate is one row flowing through the screening funnel.
// Stages only drop candidates; fields used by earlier stages are never
// mutated by later ones.
type ScreeningCandidate struct {
	Code         string  `json:"code"`
	Name         string  `json:"name,omitempty"`
	Close        float64 `json:"close"`         // 最新价
	ChangePct    float64 `json:"change_pct"`    // 涨跌幅 (%)
	TurnoverRate float64 `json:"turnover_rate"` // 换手率 (%)
	VolumeRatio  float64 `json:"volume_ratio"`  // 量比
	FloatCap     float64 `json:"float_cap"`     // 流通市值 (亿)
	TotalScore   float64 `json:"total_score"`
}

// StageCount is the survivor count after one funnel stage.
// This audit trail is a contract: operators tune thresholds stage by stage.
type StageCount struct {
	Stage     int    `json:"stage"`
	Name      string `json:"name"`
	Survivors int    `json:"survivors"`
}

// SelectionResult is the output of a full funnel run for one date
// ⭐ SSOT: 漏斗输出只从 internal/funnel 产生
type SelectionResult struct {
	Date        time.Time            `json:"date"`
	Candidates  []ScreeningCandidate `json:"candidates"`
	StageCounts []StageCount         `json:"stage_counts"`
}

// Codes returns the surviving instrument codes in order
func (r *SelectionResult) Codes() []string {
	codes := make([]string, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		codes = append(codes, c.Code)
	}
	return codes
}

// DailyCount is the number of selected instruments for one date
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}
