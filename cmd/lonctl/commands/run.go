package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/pkg/config"
	"github.com/izot/lon-core/pkg/core"
	"github.com/izot/lon-core/pkg/metrics"
)

var runTickInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node's scheduler until interrupted",
	Long: `Boots the Network Layer, Data Link Layer, and Persistent Segment
Manager against the configured interfaces and the reference flash-file
HAL, then drives the cooperative scheduler on a fixed tick interval
until Ctrl+C.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVar(&runTickInterval, "tick", 20*time.Millisecond, "scheduler tick interval")
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return err
	}

	ctx, err := core.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctx.Close(); err != nil {
			logger.Error("lonctl: close error", logger.Err(err))
		}
	}()

	logger.Info("lonctl: node started", logger.BootID(ctx.BootID))

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, &ctx.Network.Stats, &ctx.DataLink.Stats)
		metricsServer.Start()
		logger.Info("lonctl: metrics server listening", "port", cfg.Metrics.Port)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("lonctl: shutdown signal received")
		cancel()
	}()

	ctx.Run(runCtx, runTickInterval)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("lonctl: metrics server shutdown error", logger.Err(err))
		}
	}

	return nil
}
