package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zamorano/wiptrack/internal/config"
	"github.com/zamorano/wiptrack/internal/notify"
	"github.com/zamorano/wiptrack/internal/notify/discord"
	"github.com/zamorano/wiptrack/internal/notify/slack"
	"github.com/zamorano/wiptrack/internal/server"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan API and floor dashboard",
		Long:  "Serves the scan API, the floor dashboard and Prometheus metrics until interrupted. Starts the shift digest schedule when a notify platform is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.HTTP.Mode)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
		sched, err := notify.NewScheduler(gormDB, notifier, cfg.Plant,
			cfg.Notify.DigestCron, 8*time.Hour, log)
		if err != nil {
			return fmt.Errorf("digest schedule: %w", err)
		}
		go func() {
			if err := sched.Start(ctx); err != nil {
				log.Error("digest scheduler stopped", zap.Error(err))
			}
		}()
	}

	log.Info("starting wiptrack",
		zap.String("plant", cfg.Plant),
		zap.Int("port", cfg.HTTP.Port),
	)
	return server.Start(ctx, server.StartOpts{
		DB:       gormDB,
		Port:     cfg.HTTP.Port,
		Mode:     cfg.HTTP.Mode,
		Log:      log,
		Notifier: notifier,
	})
}

// buildNotifier constructs the configured chat adapter, or nil when
// notifications are disabled.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notify.Platform {
	case "":
		return nil, nil
	case "slack":
		return slack.New(slack.Opts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.Channel,
		})
	case "discord":
		return discord.New(discord.Opts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.Channel,
		})
	default:
		return nil, fmt.Errorf("notify platform %q is not supported", cfg.Notify.Platform)
	}
}
