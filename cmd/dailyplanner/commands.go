package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"routine-planner/internal/config"
	"routine-planner/internal/repository"
	"routine-planner/internal/service"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dailyplanner",
		Short: "Daily planner bot with reconciled routines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	addServe(cmd)
	addSchedule(cmd)
	addMigrate(cmd)
	return cmd
}

// app holds the wired stores and services shared by all commands.
type app struct {
	cfg       config.Config
	loc       *time.Location
	db        *gorm.DB
	users     *repository.UserRepository
	scheduler *service.SchedulerService
	reminders *service.ReminderService
	tasks     *service.TaskService
	routines  *service.RoutineService
}

func newApp(cfg config.Config, notifier service.Notifier) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	taskRepo := repository.NewTaskRepository(db)
	scheduler := service.NewSchedulerService(loc)
	reminders := service.NewReminderService(scheduler, notifier, cfg.SummaryTime)

	return &app{
		cfg:       cfg,
		loc:       loc,
		db:        db,
		users:     repository.NewUserRepository(db),
		scheduler: scheduler,
		reminders: reminders,
		tasks:     service.NewTaskService(taskRepo, reminders, loc),
		routines: service.NewRoutineService(taskRepo,
			repository.NewPreferenceRepository(db),
			repository.NewVersionRepository(db),
			reminders, loc),
	}, nil
}

func (a *app) Close() {
	sqlDB, err := a.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

// notifierFunc adapts a function to service.Notifier.
type notifierFunc func(ctx context.Context, chatID int64, text string) error

func (f notifierFunc) Notify(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

// logNotifier is used by offline commands where nothing is delivered.
var logNotifier = notifierFunc(func(_ context.Context, chatID int64, text string) error {
	log.Printf("[info] reminder for %d: %s", chatID, text)
	return nil
})
