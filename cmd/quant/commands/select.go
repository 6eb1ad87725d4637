package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/funnel"
	"github.com/minqi/bottomfisher/internal/selection"
)

// selectCmd runs the screening funnel for one trading day
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "运行七级选股漏斗",
	Long: `对指定交易日的全部股票运行七级选股漏斗.

Stages:
  1. 涨幅 3-5%
  2. 量比 >= 1
  3. 换手率 5-10%
  4. 流通市值 50-200亿
  5. 成交量趋势向上
  6. 均线多头发散
  7. 跑赢沪深300

Example:
  go run ./cmd/quant select --date 2025-06-10
  go run ./cmd/quant select --date 2025-06-10 --save`,
	RunE: runSelect,
}

var (
	selectDate     string
	selectSave     bool
	selectStrategy string
)

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVar(&selectDate, "date", "", "交易日 (YYYY-MM-DD, 默认今天)")
	selectCmd.Flags().BoolVar(&selectSave, "save", false, "保存结果到数据库")
	selectCmd.Flags().StringVar(&selectStrategy, "strategy", "", "策略参数文件 (YAML, 默认内置参数)")
}

func runSelect(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	date, err := parseDateFlag(selectDate)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	universe, err := app.provider.AllCodes(ctx, date)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	if len(universe) == 0 {
		PrintError("Universe is empty for " + date.Format("2006-01-02"))
		return nil
	}

	strat, err := loadStrategy(selectStrategy, app.log)
	if err != nil {
		return err
	}

	cfg := strat.FunnelConfig()
	if selectStrategy == "" && app.cfg.BenchmarkCode != "" {
		cfg.BenchmarkCode = app.cfg.BenchmarkCode
	}
	fn := funnel.NewFunnel(app.provider, cfg, app.log)

	result, err := fn.Select(ctx, date, universe)
	if err != nil {
		return fmt.Errorf("run funnel: %w", err)
	}

	PrintDoubleSeparator()
	fmt.Printf("  Screening %s  (universe: %d)\n", date.Format("2006-01-02"), len(universe))
	PrintSeparator()

	widths := []int{6, 20, 10}
	PrintTableHeader([]string{"Stage", "Name", "Survivors"}, widths)
	for _, sc := range result.StageCounts {
		PrintTableRow([]string{
			strconv.Itoa(sc.Stage), sc.Name, strconv.Itoa(sc.Survivors),
		}, widths)
	}

	PrintSeparator()
	for _, c := range result.Candidates {
		fmt.Printf("   %s  close=%.2f  chg=%.2f%%  turnover=%.2f%%\n",
			c.Code, c.Close, c.ChangePct, c.TurnoverRate)
	}

	if selectSave {
		store := selection.NewStore(app.db.Pool)
		if err := store.SaveSelection(ctx, date, result); err != nil {
			return fmt.Errorf("save selection: %w", err)
		}
		PrintSuccess("Selection saved")
	}

	PrintSuccess(fmt.Sprintf("%d instruments selected", len(result.Candidates)))
	return nil
}
