package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/internal/external/eastmoney"
	"github.com/minqi/bottomfisher/internal/marketdata"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// DataSyncJob pulls the day's candles from the quote API into Postgres.
// Failures on single instruments are logged and skipped; the sync only
// errors when nothing could be fetched at all.
type DataSyncJob struct {
	client   *eastmoney.Client
	repo     *marketdata.Repository
	provider contracts.PriceProvider
	logger   *logger.Logger

	dailyLookback int
}

// NewDataSyncJob creates a new data sync job
func NewDataSyncJob(
	client *eastmoney.Client,
	repo *marketdata.Repository,
	provider contracts.PriceProvider,
	log *logger.Logger,
) *DataSyncJob {
	return &DataSyncJob{
		client:        client,
		repo:          repo,
		provider:      provider,
		logger:        log,
		dailyLookback: 10,
	}
}

// Name returns the job name
func (j *DataSyncJob) Name() string {
	return "data_sync"
}

// Schedule returns the cron schedule (16:00 on weekdays)
func (j *DataSyncJob) Schedule() string {
	return "0 0 16 * * 1-5"
}

// Run fetches and upserts daily and minute candles for the whole universe
func (j *DataSyncJob) Run(ctx context.Context) error {
	now := time.Now()

	codes, err := j.provider.AllCodes(ctx, now)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	synced := 0
	for _, code := range codes {
		daily, err := j.client.DailyCandles(ctx, code, now, j.dailyLookback)
		if err != nil {
			j.logger.WithError(err).WithField("code", code).Warn("Daily kline fetch failed")
			continue
		}
		if err := j.repo.SaveDailyCandles(ctx, code, daily); err != nil {
			j.logger.WithError(err).WithField("code", code).Warn("Daily candle save failed")
			continue
		}

		minute, err := j.client.MinuteCandles(ctx, code, now, contracts.SessionMinutes)
		if err != nil {
			j.logger.WithError(err).WithField("code", code).Warn("Minute kline fetch failed")
			continue
		}
		if err := j.repo.SaveMinuteCandles(ctx, code, minute); err != nil {
			j.logger.WithError(err).WithField("code", code).Warn("Minute candle save failed")
			continue
		}

		synced++
	}

	if synced == 0 && len(codes) > 0 {
		return fmt.Errorf("no instruments synced out of %d", len(codes))
	}

	j.logger.WithFields(map[string]interface{}{
		"synced": synced,
		"total":  len(codes),
	}).Info("Data sync completed")

	return nil
}
