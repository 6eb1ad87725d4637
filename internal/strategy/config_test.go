package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `meta:
  strategy_id: test_v1
  version: "1.0"
  timezone: Asia/Shanghai

screening:
  change_pct: { min: 3.0, max: 5.0 }
  min_volume_ratio: 1.0
  turnover_pct: { min: 5.0, max: 10.0 }
  float_cap_billion: { min: 50.0, max: 200.0 }
  volume_trend_days: 5
  blow_off_drop_ratio: 0.95
  benchmark_code: 000300.XSHG

trading:
  max_hold_days: 5
  decline_days: 3
  target_factor: 1.05

backtest:
  initial_cash: 1000000
  max_positions: 5
`

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempYAML(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test_v1", cfg.Meta.StrategyID)
	assert.Equal(t, 3.0, cfg.Screening.ChangePct.Min)
	assert.Equal(t, 5, cfg.Trading.MaxHoldDays)
	assert.Equal(t, 1_000_000.0, cfg.Backtest.InitialCash)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeTempYAML(t, sampleYAML+"\nextra_section:\n  foo: 1\n"))
	assert.ErrorContains(t, err, "parse strategy file")
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	bad := `meta:
  strategy_id: test_v1

screening:
  change_pct: { min: 5.0, max: 3.0 }
  min_volume_ratio: 1.0
  turnover_pct: { min: 5.0, max: 10.0 }
  float_cap_billion: { min: 50.0, max: 200.0 }
  volume_trend_days: 5
  blow_off_drop_ratio: 0.95
  benchmark_code: 000300.XSHG

trading:
  max_hold_days: 5
  decline_days: 3
  target_factor: 1.05

backtest:
  initial_cash: 1000000
  max_positions: 5
`
	_, err := Load(writeTempYAML(t, bad))
	assert.ErrorContains(t, err, "min must be < max")
}

func TestValidateTradingRules(t *testing.T) {
	cfg := Default()
	cfg.Trading.TargetFactor = 1.0
	assert.ErrorContains(t, Validate(cfg), "target_factor")

	cfg = Default()
	cfg.Trading.DeclineDays = 10
	assert.ErrorContains(t, Validate(cfg), "decline_days")
}

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	fc := cfg.FunnelConfig()
	assert.Equal(t, 3.0, fc.MinChangePct)
	assert.Equal(t, "000300.XSHG", fc.BenchmarkCode)

	tc := cfg.TraderConfig()
	assert.Equal(t, 5, tc.MaxHoldDays)
	assert.Equal(t, 1.05, tc.TargetFactor)
}

func TestHashDeterministic(t *testing.T) {
	cfg := Default()

	h1, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	cfg.Trading.TargetFactor = 1.10
	h3, err := Hash(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 3.0, Max: 5.0}
	assert.True(t, r.Contains(3.0))
	assert.True(t, r.Contains(5.0))
	assert.False(t, r.Contains(5.01))
}
