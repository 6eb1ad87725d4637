package strategy

import "fmt"

// ValidationError reports the offending field and constraint
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints, failing on the first violation
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	if err := validateRange("screening.change_pct", cfg.Screening.ChangePct); err != nil {
		return err
	}
	if cfg.Screening.MinVolumeRatio <= 0 {
		return ValidationError{"screening.min_volume_ratio", "must be > 0"}
	}
	if err := validateRange("screening.turnover_pct", cfg.Screening.TurnoverPct); err != nil {
		return err
	}
	if err := validateRange("screening.float_cap_billion", cfg.Screening.FloatCapBillion); err != nil {
		return err
	}
	if cfg.Screening.VolumeTrendDays < 3 {
		return ValidationError{"screening.volume_trend_days", "must be >= 3"}
	}
	if cfg.Screening.BlowOffDropRatio <= 0 || cfg.Screening.BlowOffDropRatio >= 1 {
		return ValidationError{"screening.blow_off_drop_ratio", "must be in (0, 1)"}
	}
	if cfg.Screening.BenchmarkCode == "" {
		return ValidationError{"screening.benchmark_code", "required"}
	}

	if cfg.Trading.MaxHoldDays <= 0 {
		return ValidationError{"trading.max_hold_days", "must be > 0"}
	}
	if cfg.Trading.DeclineDays <= 0 {
		return ValidationError{"trading.decline_days", "must be > 0"}
	}
	if cfg.Trading.DeclineDays > cfg.Trading.MaxHoldDays {
		return ValidationError{"trading.decline_days", "must not exceed max_hold_days"}
	}
	if cfg.Trading.TargetFactor <= 1 {
		return ValidationError{"trading.target_factor", "must be > 1"}
	}

	if cfg.Backtest.InitialCash <= 0 {
		return ValidationError{"backtest.initial_cash", "must be > 0"}
	}
	if cfg.Backtest.MaxPositions <= 0 {
		return ValidationError{"backtest.max_positions", "must be > 0"}
	}

	return nil
}

func validateRange(field string, r Range) error {
	if r.Min <= 0 {
		return ValidationError{field + ".min", "must be > 0"}
	}
	if r.Min >= r.Max {
		return ValidationError{field, "min must be < max"}
	}
	return nil
}
