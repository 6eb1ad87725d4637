package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/bands"
	"github.com/minqi/bottomfisher/internal/selection"
)

// bandsCmd computes retracement price bands for a trading day
var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "计算回撤价格带",
	Long: `对指定交易日的股票计算回撤价格带 (hc/hd/hx/ha, lc/ld/lx/la, no).

不带 --codes 时使用当日已保存的选股结果.

Example:
  go run ./cmd/quant bands --date 2025-06-10
  go run ./cmd/quant bands --date 2025-06-10 --codes 600519.XSHG,000001.XSHE --save`,
	RunE: runBands,
}

var (
	bandsDate  string
	bandsCodes []string
	bandsSave  bool
)

func init() {
	rootCmd.AddCommand(bandsCmd)

	bandsCmd.Flags().StringVar(&bandsDate, "date", "", "交易日 (YYYY-MM-DD, 默认今天)")
	bandsCmd.Flags().StringSliceVar(&bandsCodes, "codes", nil, "标的代码列表, 逗号分隔")
	bandsCmd.Flags().BoolVar(&bandsSave, "save", false, "保存结果到数据库")
}

func runBands(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	date, err := parseDateFlag(bandsDate)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store := selection.NewStore(app.db.Pool)

	codes := bandsCodes
	if len(codes) == 0 {
		codes, err = store.Selection(ctx, date)
		if err != nil {
			return fmt.Errorf("load selection: %w", err)
		}
	}
	if len(codes) == 0 {
		PrintError("No instruments to compute bands for")
		return nil
	}

	calc := bands.NewCalculator(app.provider, app.log)
	bandSet, err := calc.Compute(ctx, date, codes)
	if err != nil {
		return fmt.Errorf("compute bands: %w", err)
	}

	PrintDoubleSeparator()
	fmt.Printf("  Retracement bands %s\n", date.Format("2006-01-02"))
	PrintSeparator()

	for _, code := range codes {
		b, ok := bandSet[code]
		if !ok {
			fmt.Printf("   %s  (dropped: incomplete data)\n", code)
			continue
		}
		fmt.Printf("   %s  ha=%.2f  la=%.2f  no=%.2f\n", code, b.HighAvg, b.LowAvg, b.No)
	}

	if bandsSave {
		if err := store.SaveBands(ctx, date, bandSet); err != nil {
			return fmt.Errorf("save bands: %w", err)
		}
		PrintSuccess("Bands saved")
	}

	PrintSuccess(fmt.Sprintf("%d/%d bands computed", len(bandSet), len(codes)))
	return nil
}
