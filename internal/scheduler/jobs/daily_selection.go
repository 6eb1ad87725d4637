package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/minqi/bottomfisher/internal/bands"
	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/internal/funnel"
	"github.com/minqi/bottomfisher/pkg/logger"
)

// DailySelectionJob runs the screening funnel and the band calculator after
// the close and persists both results.
// ⭐ SSOT: 每日选股任务只在这里
type DailySelectionJob struct {
	provider contracts.PriceProvider
	funnel   *funnel.Funnel
	calc     *bands.Calculator
	store    contracts.SelectionStore
	logger   *logger.Logger
}

// NewDailySelectionJob creates a new daily selection job
func NewDailySelectionJob(
	provider contracts.PriceProvider,
	fn *funnel.Funnel,
	calc *bands.Calculator,
	store contracts.SelectionStore,
	log *logger.Logger,
) *DailySelectionJob {
	return &DailySelectionJob{
		provider: provider,
		funnel:   fn,
		calc:     calc,
		store:    store,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailySelectionJob) Name() string {
	return "daily_selection"
}

// Schedule returns the cron schedule (15:30 on weekdays, after the close)
func (j *DailySelectionJob) Schedule() string {
	return "0 30 15 * * 1-5"
}

// Run executes the selection pipeline for today
func (j *DailySelectionJob) Run(ctx context.Context) error {
	now := time.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	universe, err := j.provider.AllCodes(ctx, date)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	if len(universe) == 0 {
		j.logger.WithField("date", date.Format("2006-01-02")).Warn("Empty universe, skipping selection")
		return nil
	}

	result, err := j.funnel.Select(ctx, date, universe)
	if err != nil {
		return fmt.Errorf("run funnel: %w", err)
	}

	if err := j.store.SaveSelection(ctx, date, result); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}

	bandSet, err := j.calc.Compute(ctx, date, result.Codes())
	if err != nil {
		return fmt.Errorf("compute bands: %w", err)
	}

	if err := j.store.SaveBands(ctx, date, bandSet); err != nil {
		return fmt.Errorf("save bands: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"selected": len(result.Candidates),
		"bands":    len(bandSet),
	}).Info("Daily selection completed")

	return nil
}
