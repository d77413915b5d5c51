package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"routine-planner/internal/schedule"
)

// SchedulerService runs reminder and maintenance jobs on a cron clock. A job
// that panics is logged and the clock keeps running.
type SchedulerService struct {
	cron *cron.Cron
	loc  *time.Location
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	logger := cron.PrintfLogger(log.New(os.Stdout, "[cron] ", log.LstdFlags))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(logger)),
		),
		loc: loc,
	}
}

// ScheduleDaily runs job every day at clock, an H:MM time in the scheduler's zone.
func (s *SchedulerService) ScheduleDaily(clock string, job func()) (cron.EntryID, error) {
	minute, ok := schedule.ParseClock(clock)
	if !ok {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	return s.cron.AddFunc(dailySpec("", minute), job)
}

// ScheduleDailyAt runs job every day at the wall-clock minute of at, in at's
// zone. Zones cron cannot load by name, such as fixed offsets, are converted
// to the scheduler's zone first.
func (s *SchedulerService) ScheduleDailyAt(at time.Time, job func()) (cron.EntryID, error) {
	zone := ""
	if name := at.Location().String(); name != "Local" && name != s.loc.String() {
		if _, err := time.LoadLocation(name); err == nil {
			zone = name
		} else {
			at = at.In(s.loc)
		}
	}
	return s.cron.AddFunc(dailySpec(zone, schedule.MinuteOfDay(at)), job)
}

// ScheduleOnce registers a job that runs a single time at the given instant.
func (s *SchedulerService) ScheduleOnce(at time.Time, job func()) cron.EntryID {
	return s.cron.Schedule(onceSchedule{at: at}, cron.FuncJob(job))
}

// ScheduleInterval runs job every interval. Sub-second intervals round up to a second.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(job)), nil
}

func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Len returns the number of registered jobs.
func (s *SchedulerService) Len() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the clock and waits for running jobs until ctx is done.
func (s *SchedulerService) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// onceSchedule fires at a fixed instant and never again.
type onceSchedule struct {
	at time.Time
}

func (o onceSchedule) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}

// dailySpec is a seconds-first cron spec firing at minute of day, pinned to
// zone when one is given.
func dailySpec(zone string, minute int) string {
	spec := fmt.Sprintf("0 %d %d * * *", minute%60, minute/60)
	if zone != "" {
		spec = "CRON_TZ=" + zone + " " + spec
	}
	return spec
}
