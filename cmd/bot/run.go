package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/stroymat/materials-bot/internal/advisor"
	"github.com/stroymat/materials-bot/internal/bot"
	"github.com/stroymat/materials-bot/internal/catalog"
	"github.com/stroymat/materials-bot/internal/config"
	"github.com/stroymat/materials-bot/internal/db"
	"github.com/stroymat/materials-bot/internal/dispatch"
	"github.com/stroymat/materials-bot/internal/intake"
)

const purgeInterval = time.Hour

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load(viper.GetViper(), logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cat := catalog.Default()

	adv := advisor.New(advisor.Config{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.AdvisorTimeout,
	}, cat, logger.With("component", "advisor"))

	var opts []dispatch.Option

	var journal *db.DB
	if cfg.JournalPath != "" {
		journal, err = db.New(cfg.JournalPath, cfg.JournalKey)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()
		opts = append(opts, dispatch.WithJournal(journal))
	}

	if cfg.NATSURL != "" {
		publisher, err := dispatch.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, "materials-bot", logger)
		if err != nil {
			logger.Warn("order events disabled", "error", err)
		} else {
			defer publisher.Close()
			opts = append(opts, dispatch.WithPublisher(publisher))
		}
	}

	telegram, err := bot.New(bot.Config{
		Token: cfg.TelegramToken,
		Debug: cfg.TelegramDebug,
	}, logger.With("component", "telegram"))
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(dispatch.Config{OperatorChat: cfg.ManagerChatID}, cat, telegram,
		logger.With("component", "dispatch"), opts...)
	defer dispatcher.Close()

	machine := intake.New(cat, adv, dispatcher, logger.With("component", "intake"))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return telegram.Run(ctx, machine)
	})

	if journal != nil {
		g.Go(func() error {
			purgeJournal(ctx, journal, cfg.JournalRetention, logger)
			return nil
		})
	}

	logger.Info("bot is running",
		"advisor", adv.Enabled(),
		"operator_chat", cfg.ManagerChatID != 0,
		"journal", journal != nil,
	)

	return g.Wait()
}

func purgeJournal(ctx context.Context, journal *db.DB, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := journal.PurgeOldDispatches(ctx, retention)
			if err != nil {
				logger.Error("failed to purge journal", "error", err)
			} else if purged > 0 {
				logger.Info("purged old dispatches", "count", purged)
			}
		}
	}
}
