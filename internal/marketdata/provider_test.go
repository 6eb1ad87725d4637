package marketdata

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/database"
	"github.com/minqi/bottomfisher/pkg/logger"
)

func testProvider(t *testing.T) *Provider {
	t.Helper()

	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewProvider(db.Pool, nil, logger.New(cfg))
}

func TestDailyCandlesOrderedOldestFirst(t *testing.T) {
	p := testProvider(t)

	end := time.Now()
	candles, err := p.DailyCandles(context.Background(), "000001.XSHE", end, 10)
	require.NoError(t, err)

	for i := 1; i < len(candles); i++ {
		assert.True(t, candles[i].Timestamp.After(candles[i-1].Timestamp))
		assert.Equal(t, contracts.ResolutionDaily, candles[i].Resolution)
	}
}

func TestTradeDaysOrderedOldestFirst(t *testing.T) {
	p := testProvider(t)

	days, err := p.TradeDays(context.Background(), time.Now(), 20)
	require.NoError(t, err)

	for i := 1; i < len(days); i++ {
		assert.True(t, days[i].After(days[i-1]))
	}
}

func TestFundamentalsUnknownField(t *testing.T) {
	p := &Provider{}

	_, err := p.Fundamentals(context.Background(), "nonexistent_field", []string{"000001.XSHE"}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fundamental field")
}
