package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"routine-planner/internal/config"
	"routine-planner/internal/service"
)

const layoutISO = "2006-01-02"

type scheduleOptions struct {
	TelegramID int64
	Date       string
}

func addSchedule(topLevel *cobra.Command) {
	o := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the reconciled day of a user.",
		Example: `
dailyplanner schedule --telegram-id 123456
dailyplanner schedule --telegram-id 123456 --date 2025-11-30
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.TelegramID == 0 {
				return errors.New("--telegram-id is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a, err := newApp(cfg, logNotifier)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.printSchedule(cmd.Context(), o)
		},
	}

	cmd.Flags().Int64Var(&o.TelegramID, "telegram-id", 0, "Telegram user ID to show.")
	cmd.Flags().StringVar(&o.Date, "date", "", `Day to show, example: --date="2025-11-30". Defaults to today.`)
	topLevel.AddCommand(cmd)
}

func (a *app) printSchedule(ctx context.Context, o *scheduleOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	user, err := a.users.FindByTelegramID(ctx, o.TelegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no user with telegram id %d", o.TelegramID)
	}
	if err != nil {
		return err
	}

	loc := user.Location(a.loc)
	day := time.Now().In(loc)
	if o.Date != "" {
		day, err = time.ParseInLocation(layoutISO, o.Date, loc)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	sched, err := a.routines.Refresh(ctx, user, day)
	if err != nil {
		return err
	}
	printSchedule(sched)
	return nil
}

func printSchedule(s service.Schedule) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	done := color.New(color.FgGreen)

	_, _ = fmt.Fprintln(color.Output, "")
	_, _ = bold.Fprintln(color.Output, s.Day.Format("Monday, 02 Jan 2006"))

	if len(s.Entries) == 0 {
		_, _ = faint.Fprintln(color.Output, " none")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Time"), bold.Sprint("Kind"), bold.Sprint("Title"), bold.Sprint("Done"))
	for _, e := range s.Entries {
		when := faint.Sprint("--:--")
		if e.HasRange {
			when = e.Range.String()
		}
		kind := "task"
		if e.Routine {
			kind = e.Kind.String()
		}
		status := ""
		if e.Task.IsCompleted {
			status = done.Sprint("✓")
		}
		tbl.AddRow(e.Task.ID, when, kind, e.Task.Title, status)
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(color.Output, tbl)
	_, _ = faint.Fprintf(color.Output, "%d open of %d\n", s.OpenCount(), len(s.Entries))
}
