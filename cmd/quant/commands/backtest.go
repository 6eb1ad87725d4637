package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/backtest"
	"github.com/minqi/bottomfisher/internal/selection"
)

// backtestCmd is the parent command for backtesting
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "回测",
	Long:  `按历史选股结果回放每日交易循环.`,
}

// backtestRunCmd executes a backtest over a date range
var backtestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "运行回测",
	Long: `在指定日期区间内回放交易循环并输出绩效指标.

选股来源默认为数据库; 用 --watchlist 指定导出的选股文件.

Example:
  go run ./cmd/quant backtest run --start 2025-01-02 --end 2025-06-30
  go run ./cmd/quant backtest run --start 2025-01-02 --end 2025-06-30 --watchlist selected_list.txt`,
	RunE: runBacktest,
}

var (
	backtestStart     string
	backtestEnd       string
	backtestCash      float64
	backtestPositions int
	backtestWatchlist string
	backtestStrategy  string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestStart, "start", "", "起始日期 (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestEnd, "end", "", "结束日期 (YYYY-MM-DD)")
	backtestRunCmd.Flags().Float64Var(&backtestCash, "cash", 1_000_000, "初始资金")
	backtestRunCmd.Flags().IntVar(&backtestPositions, "positions", 5, "最大持仓数")
	backtestRunCmd.Flags().StringVar(&backtestWatchlist, "watchlist", "", "选股文件路径 (可选)")
	backtestRunCmd.Flags().StringVar(&backtestStrategy, "strategy", "", "策略参数文件 (YAML, 默认内置参数)")
	backtestRunCmd.MarkFlagRequired("start")
	backtestRunCmd.MarkFlagRequired("end")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	start, err := parseDateFlag(backtestStart)
	if err != nil {
		return err
	}
	end, err := parseDateFlag(backtestEnd)
	if err != nil {
		return err
	}

	var source backtest.SelectionSource
	if backtestWatchlist != "" {
		list, err := selection.LoadWatchlist(backtestWatchlist)
		if err != nil {
			return fmt.Errorf("load watchlist: %w", err)
		}
		source = backtest.WatchlistSource{List: list}
	} else {
		source = selection.NewStore(app.db.Pool)
	}

	strat, err := loadStrategy(backtestStrategy, app.log)
	if err != nil {
		return err
	}

	cfg := backtest.DefaultConfig()
	cfg.StartDate = start
	cfg.EndDate = end
	cfg.Trading = strat.TraderConfig()
	cfg.InitialCash = strat.Backtest.InitialCash
	cfg.MaxPositions = strat.Backtest.MaxPositions

	// 命令行显式给出的资金参数覆盖策略文件
	if cmd.Flags().Changed("cash") {
		cfg.InitialCash = backtestCash
	}
	if cmd.Flags().Changed("positions") {
		cfg.MaxPositions = backtestPositions
	}

	engine := backtest.NewEngine(app.provider, source, app.log)
	result, err := engine.Run(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	PrintDoubleSeparator()
	fmt.Printf("  Backtest %s ~ %s\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))
	PrintSeparator()
	PrintKeyValue("Trading days", fmt.Sprintf("%d", result.TradingDays), 14)
	PrintKeyValue("Initial cash", fmt.Sprintf("%.2f", result.InitialCash), 14)
	PrintKeyValue("Final assets", fmt.Sprintf("%.2f", result.FinalAssets), 14)
	PrintKeyValue("Total return", fmt.Sprintf("%.2f%%", result.TotalReturn*100), 14)
	PrintKeyValue("CAGR", fmt.Sprintf("%.2f%%", result.CAGR*100), 14)
	PrintKeyValue("Volatility", fmt.Sprintf("%.2f%%", result.Volatility*100), 14)
	PrintKeyValue("Sharpe", fmt.Sprintf("%.2f", result.SharpeRatio), 14)
	PrintKeyValue("Max drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdown*100), 14)
	PrintKeyValue("VaR 95%", fmt.Sprintf("%.2f%%", result.VaR95*100), 14)
	PrintKeyValue("CVaR 95%", fmt.Sprintf("%.2f%%", result.CVaR95*100), 14)
	if p := result.Projection; p != nil {
		PrintSeparator()
		fmt.Printf("  Monte Carlo %d-day projection (%d runs)\n",
			p.Config.HoldingPeriod, p.Config.NumSimulations)
		PrintKeyValue("Mean", fmt.Sprintf("%.2f%%", p.MeanReturn*100), 14)
		PrintKeyValue("VaR 95%", fmt.Sprintf("%.2f%%", p.VaR95*100), 14)
		PrintKeyValue("CVaR 95%", fmt.Sprintf("%.2f%%", p.CVaR95*100), 14)
	}
	PrintDoubleSeparator()

	PrintSuccess("Backtest completed")
	return nil
}
