// Package jobs runs the periodic maintenance work of the tracker on a gocron
// scheduler: the overdue scan and the daily backup.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/pkg/logger"
)

// Task is one run of a scheduled job. The context is cancelled on Shutdown.
type Task func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name    string
	NextRun time.Time
}

// Scheduler wraps gocron with the service lifecycle context.
type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler evaluating daily times in zone. A nil
// clock uses the wall clock.
func NewScheduler(zone *time.Location, clock clockwork.Clock) (*Scheduler, error) {
	if zone == nil {
		zone = time.UTC
	}
	opts := []gocron.SchedulerOption{
		gocron.WithLocation(zone),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithError(func(_ uuid.UUID, name string, err error) {
					logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
				}),
			),
		),
	}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}

	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{s: s, ctx: ctx, cancel: cancel}, nil
}

// Every runs task every interval, first after one interval has passed.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run(task)),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	logger.Info("Scheduled job registered", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

// DailyAt runs task once a day at hour:minute in the scheduler zone.
func (s *Scheduler) DailyAt(name string, hour, minute int, task Task) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("job %s: invalid time %02d:%02d", name, hour, minute)
	}
	_, err := s.s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(s.run(task)),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	logger.Info("Scheduled job registered", zap.String("job", name), zap.String("at", fmt.Sprintf("%02d:%02d", hour, minute)))
	return nil
}

func (s *Scheduler) run(task Task) func() error {
	return func() error {
		if err := s.ctx.Err(); err != nil {
			return nil
		}
		return task(s.ctx)
	}
}

// Jobs lists the registered jobs with their next run time.
func (s *Scheduler) Jobs() []JobInfo {
	jobs := s.s.Jobs()
	out := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		next, _ := j.NextRun()
		out = append(out, JobInfo{Name: j.Name(), NextRun: next})
	}
	return out
}

// Start begins executing jobs.
func (s *Scheduler) Start() {
	s.s.Start()
}

// Shutdown cancels running tasks and stops the scheduler.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.s.Shutdown()
}
