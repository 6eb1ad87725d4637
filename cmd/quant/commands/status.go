package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/selection"
)

// statusCmd shows system health and recent selection counts
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看系统状态",
	Long: `检查数据库连接并显示最近的每日选股数量.

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --days 14`,
	RunE: runStatus,
}

var statusDays int

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusDays, "days", 7, "回看天数")
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	PrintDoubleSeparator()
	fmt.Println("  System status")
	PrintSeparator()

	health, err := app.db.HealthCheck(ctx)
	if err != nil {
		PrintError("Database: " + health.Error)
		return fmt.Errorf("database health check: %w", err)
	}
	PrintKeyValue("Database", "ok", 10)
	PrintKeyValue("Latency", health.ResponseTime.String(), 10)
	PrintKeyValue("Conns", fmt.Sprintf("%d/%d (idle %d)",
		health.TotalConns, health.MaxConns, health.IdleConns), 10)

	store := selection.NewStore(app.db.Pool)
	counts, err := store.RecentCounts(ctx, statusDays)
	if err != nil {
		return fmt.Errorf("load recent counts: %w", err)
	}

	PrintSeparator()
	if len(counts) == 0 {
		PrintInfo("No selections recorded")
	} else {
		widths := []int{12, 8}
		PrintTableHeader([]string{"Date", "Selected"}, widths)
		for _, c := range counts {
			PrintTableRow([]string{
				c.Date.Format("2006-01-02"), strconv.Itoa(c.Count),
			}, widths)
		}
	}
	PrintDoubleSeparator()

	return nil
}
