package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultJobTimeout bounds a single run of a scheduled job.
const DefaultJobTimeout = time.Minute

// Scheduler runs jobs on fixed intervals. A job never overlaps with its own
// previous run.
type Scheduler struct {
	cron    *gocron.Scheduler
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a stopped Scheduler running in UTC.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Scheduler{
		cron:    cron,
		timeout: DefaultJobTimeout,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Every registers fn under name, to run every interval. When immediate is
// true the first run happens as soon as the scheduler starts.
func (s *Scheduler) Every(interval time.Duration, name string, immediate bool, fn func(ctx context.Context) error) error {
	job := s.cron.Every(interval).Tag(name)
	if !immediate {
		job = job.WaitForSchedule()
	}

	if _, err := job.Do(s.wrap(name, fn)); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	s.logger.Debug("job scheduled", slog.String("job", name), slog.Duration("interval", interval))
	return nil
}

// EveryReminderCheck schedules svc.Check.
func (s *Scheduler) EveryReminderCheck(interval time.Duration, svc *Service) error {
	return s.Every(interval, "reminders", true, func(ctx context.Context) error {
		_, err := svc.Check(ctx)
		return err
	})
}

// RunNow runs the named job once, outside its schedule. The scheduler must
// be started.
func (s *Scheduler) RunNow(name string) error {
	return s.cron.RunByTag(name)
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop stops scheduling new runs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Error("job failed",
				slog.String("job", name),
				slog.String("error", err.Error()))
			return
		}
		s.logger.Debug("job finished",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)))
	}
}
