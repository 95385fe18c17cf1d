package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"signcast/client"
	"signcast/config"
	"signcast/logger"
	"signcast/realtime"
	"signcast/store"
)

var agentWatch string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the sync engine headless against a backend.",
	Long: `agent connects the playlist store to the configured backend and
realtime endpoint. With --watch it opens a playlist, joins its room, and
logs remote changes as they converge.`,
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

		api := client.NewClient(cfg.APIBaseURL)
		api.SetTimeout(cfg.MutationTimeout)

		channel := realtime.NewChannel(cfg.SocketURL, realtime.Backoff{
			Base:        cfg.ReconnectBase,
			Cap:         cfg.ReconnectCap,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		})
		if err := channel.Connect(); err != nil {
			return err
		}
		defer channel.Close()

		statusSub := channel.OnStatus(func(s realtime.Status) {
			logger.Info("connection status changed", logger.String("status", string(s)))
		})
		defer statusSub.Close()

		st := store.NewStore(api, channel, store.Options{
			Identity:        store.Identity{UserID: cfg.UserID, UserEmail: cfg.UserEmail},
			MutationTimeout: cfg.MutationTimeout,
			ListTTL:         cfg.ListCacheTTL,
			EntityTTL:       cfg.EntityCacheTTL,
			SearchDebounce:  cfg.SearchDebounce,
			PrefsPath:       cfg.StateFile,
		})
		defer st.Close()

		ctx := context.Background()
		if _, err := st.FetchPlaylists(ctx); err != nil {
			logger.Warn("initial list fetch failed", logger.ErrorField(err))
		}

		if agentWatch != "" {
			p, err := st.OpenPlaylist(ctx, agentWatch)
			if err != nil {
				return err
			}
			logger.Info("watching playlist",
				logger.String("id", p.ID),
				logger.String("name", p.Name),
				logger.Int("items", len(p.Items)))
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		if agentWatch != "" {
			st.ClosePlaylist()
		}
		logger.Info("agent shutting down")
		return nil
	},
}

func init() {
	agentCmd.Flags().StringVar(&agentWatch, "watch", "", "playlist id to open and watch")
	rootCmd.AddCommand(agentCmd)
}
