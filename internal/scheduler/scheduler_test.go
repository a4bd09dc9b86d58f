package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePruner) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep() int {
	f.calls++
	return 2
}

func TestPruneActivity_Cutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	p := &fakePruner{n: 4}
	job := PruneActivity("0 3 * * *", p, 90*24*time.Hour, func() time.Time { return now })

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -90), p.cutoff)
	assert.Equal(t, "prune-activity", job.Name)
}

func TestPruneActivity_Error(t *testing.T) {
	p := &fakePruner{err: errors.New("db down")}
	job := PruneActivity("0 3 * * *", p, time.Hour, nil)
	assert.Error(t, job.Run(context.Background()))
}

func TestSweepLimiter(t *testing.T) {
	s := &fakeSweeper{}
	require.NoError(t, SweepLimiter("@every 10m", s).Run(context.Background()))
	assert.Equal(t, 1, s.calls)
}

func TestStart_InvalidSpec(t *testing.T) {
	_, err := Start(context.Background(), Job{Name: "bad", Spec: "not a cron", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestStart_Stop(t *testing.T) {
	stop, err := Start(context.Background(),
		PruneActivity("0 3 * * *", &fakePruner{}, time.Hour, nil),
		SweepLimiter("@every 10m", &fakeSweeper{}),
	)
	require.NoError(t, err)
	stop()
}
