package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/cinebrowse/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Job is a named unit of background work run on a cron schedule.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Start registers jobs on a new cron runner and starts it. Jobs run with ctx;
// the returned stop function halts the runner and waits for running jobs to finish.
// An invalid schedule fails the whole start so misconfiguration surfaces at boot.
func Start(ctx context.Context, jobs ...Job) (stop func(), err error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	for _, j := range jobs {
		job := j
		if _, err := c.AddFunc(job.Spec, func() { runJob(ctx, job) }); err != nil {
			return nil, fmt.Errorf("scheduler: job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
		}
		slog.Info("scheduler: job registered", "job", job.Name, "schedule", job.Spec)
	}

	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

func runJob(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		slog.Error("scheduler: job failed", "job", job.Name, "error", err)
		return
	}
	slog.Debug("scheduler: job done", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
}

// ActivityPruner deletes auth events older than a cutoff.
type ActivityPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneActivity returns a job that keeps only the last retention worth of auth events.
// now may be nil, meaning time.Now.
func PruneActivity(spec string, p ActivityPruner, retention time.Duration, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name: "prune-activity",
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := p.PruneBefore(ctx, now().Add(-retention))
			if err != nil {
				return err
			}
			metrics.AddActivityPruned(n)
			if n > 0 {
				slog.Info("scheduler: pruned auth activity", "rows", n, "retention", retention.String())
			}
			return nil
		},
	}
}

// Sweeper drops idle in-memory state, reporting how many entries it removed.
type Sweeper interface {
	Sweep() int
}

// SweepLimiter returns a job that evicts idle rate limiter buckets.
func SweepLimiter(spec string, s Sweeper) Job {
	return Job{
		Name: "sweep-rate-limiter",
		Spec: spec,
		Run: func(ctx context.Context) error {
			if n := s.Sweep(); n > 0 {
				slog.Debug("scheduler: swept rate limiter", "buckets", n)
			}
			return nil
		},
	}
}
