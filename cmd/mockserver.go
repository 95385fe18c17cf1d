package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"signcast/config"
	"signcast/logger"
	"signcast/mockserver"
)

var mockServerCmd = &cobra.Command{
	Use:   "mockserver",
	Short: "Run the development backend (playlist CRUD + realtime relay).",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogOutputPath,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   cfg.LogCompress,
		})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			cancel()
		}()

		return mockserver.NewServer().Start(ctx, cfg.MockAddr)
	},
}

func init() {
	rootCmd.AddCommand(mockServerCmd)
}
