package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/minqi/bottomfisher/internal/api"
	"github.com/minqi/bottomfisher/internal/api/handlers"
	"github.com/minqi/bottomfisher/internal/selection"
)

// apiCmd starts the HTTP API server
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "启动 HTTP API 服务",
	Long: `启动只读查询 API (选股结果, 阶段统计, 价格带).

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8090`,
	RunE: runAPI,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "监听端口 (默认取 PORT 环境变量)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	store := selection.NewStore(app.db.Pool)
	handler := handlers.NewSelectionHandler(store, app.log)
	router := api.NewRouter(handler, app.log)
	server := api.New(app.cfg, app.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	PrintSuccess("API server listening on :" + app.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		app.log.WithField("signal", sig.String()).Info("Shutting down API server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	PrintSuccess("API server stopped")
	return nil
}
