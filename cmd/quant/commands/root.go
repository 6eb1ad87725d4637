package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "bottomfisher - A股回撤价格带选股与回测工具",
	Long: `bottomfisher Unified CLI

基于回撤价格带的 A 股选股/交易回测系统.
七级漏斗选股, 价格带挂单, 资金账本回放.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant select --date 2025-06-10
  go run ./cmd/quant bands --date 2025-06-10
  go run ./cmd/quant backtest run --start 2025-01-02 --end 2025-06-30
  go run ./cmd/quant api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
