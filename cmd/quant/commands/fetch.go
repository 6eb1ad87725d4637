package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/contracts"
	"github.com/minqi/bottomfisher/internal/external/eastmoney"
	"github.com/minqi/bottomfisher/internal/marketdata"
)

// fetchCmd pulls candles from the quote API into Postgres
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "拉取行情数据",
	Long: `从东方财富行情接口拉取日线和分钟线并写入数据库.

不带 --codes 时同步全部已上市标的.

Example:
  go run ./cmd/quant fetch --codes 600519.XSHG,000001.XSHE
  go run ./cmd/quant fetch --days 30`,
	RunE: runFetch,
}

var (
	fetchCodes []string
	fetchDays  int
	fetchBoard string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringSliceVar(&fetchCodes, "codes", nil, "标的代码列表, 逗号分隔")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 10, "日线回溯天数")
	fetchCmd.Flags().StringVar(&fetchBoard, "board", "", "同步行业板块成分 (板块代码)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	client := eastmoney.NewClient(app.cfg.Eastmoney, app.log)
	repo := marketdata.NewRepository(app.db.Pool)

	if fetchBoard != "" {
		members, err := client.FetchBoardMembers(ctx, fetchBoard)
		if err != nil {
			return fmt.Errorf("fetch board members: %w", err)
		}
		if err := repo.SaveIndustryMembers(ctx, fetchBoard, members); err != nil {
			return fmt.Errorf("save board members: %w", err)
		}
		PrintSuccess(fmt.Sprintf("Board %s: %d members synced", fetchBoard, len(members)))
		return nil
	}

	codes := fetchCodes
	if len(codes) == 0 {
		codes, err = app.provider.AllCodes(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("load universe: %w", err)
		}
	}
	if len(codes) == 0 {
		PrintError("No instruments to fetch")
		return nil
	}

	now := time.Now()
	synced := 0
	for _, code := range codes {
		daily, err := client.DailyCandles(ctx, code, now, fetchDays)
		if err != nil {
			app.log.WithError(err).WithField("code", code).Warn("Daily kline fetch failed")
			continue
		}
		if err := repo.SaveDailyCandles(ctx, code, daily); err != nil {
			app.log.WithError(err).WithField("code", code).Warn("Daily candle save failed")
			continue
		}

		minute, err := client.MinuteCandles(ctx, code, now, contracts.SessionMinutes)
		if err != nil {
			app.log.WithError(err).WithField("code", code).Warn("Minute kline fetch failed")
			continue
		}
		if err := repo.SaveMinuteCandles(ctx, code, minute); err != nil {
			app.log.WithError(err).WithField("code", code).Warn("Minute candle save failed")
			continue
		}

		synced++
	}

	PrintSuccess(fmt.Sprintf("%d/%d instruments synced", synced, len(codes)))
	return nil
}
