package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/bands"
	"github.com/minqi/bottomfisher/internal/external/eastmoney"
	"github.com/minqi/bottomfisher/internal/funnel"
	"github.com/minqi/bottomfisher/internal/marketdata"
	"github.com/minqi/bottomfisher/internal/scheduler"
	"github.com/minqi/bottomfisher/internal/scheduler/jobs"
	"github.com/minqi/bottomfisher/internal/selection"
)

// schedulerCmd runs the cron scheduler in the foreground
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "启动定时任务调度器",
	Long: `前台运行调度器, 注册数据同步与每日选股任务.

Jobs:
  data_sync        16:00 工作日 行情数据同步
  daily_selection  15:30 工作日 收盘后选股 + 价格带

Example:
  go run ./cmd/quant scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	client := eastmoney.NewClient(app.cfg.Eastmoney, app.log)
	repo := marketdata.NewRepository(app.db.Pool)
	store := selection.NewStore(app.db.Pool)

	funnelCfg := funnel.DefaultConfig()
	funnelCfg.BenchmarkCode = app.cfg.BenchmarkCode
	fn := funnel.NewFunnel(app.provider, funnelCfg, app.log)
	calc := bands.NewCalculator(app.provider, app.log)

	sched := scheduler.New(app.log)

	jobList := []scheduler.Job{
		jobs.NewDataSyncJob(client, repo, app.provider, app.log),
		jobs.NewDailySelectionJob(app.provider, fn, calc, store, app.log),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	sched.Start()
	PrintSuccess(fmt.Sprintf("Scheduler started with %d jobs", len(jobList)))
	for _, name := range sched.JobNames() {
		PrintInfo("  - " + name)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	app.log.WithField("signal", sig.String()).Info("Stopping scheduler")
	sched.Stop()

	PrintSuccess("Scheduler stopped")
	return nil
}
