package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"routine-planner/internal/bot"
	"routine-planner/internal/config"
)

func addServe(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and reminder scheduler.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
	topLevel.AddCommand(cmd)
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reminder jobs only fire after the scheduler starts, by then the bot is set.
	var telegramBot *bot.Bot
	a, err := newApp(cfg, notifierFunc(func(ctx context.Context, chatID int64, text string) error {
		return telegramBot.Notify(ctx, chatID, text)
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	telegramBot, err = bot.New(cfg.TelegramToken, a.users, a.tasks, a.routines, a.loc)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	if err := telegramBot.SyncAllReminders(ctx); err != nil {
		log.Printf("[warn] initial reminder sync: %v", err)
	}
	if cfg.RefreshInterval > 0 {
		if _, err := a.scheduler.ScheduleInterval(cfg.RefreshInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SyncAllReminders(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[warn] reminder sync: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
	}
	a.scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.scheduler.Stop(stopCtx); err != nil {
			log.Printf("[warn] %v", err)
		}
	}()

	log.Println("[info] daily planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	log.Println("[info] shutdown complete")
	return nil
}
