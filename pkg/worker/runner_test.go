package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	runs  atomic.Int32
	delay time.Duration
	err   error
}

func (w *countingWorker) Name() string { return "counting" }

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	return w.err
}

func TestNewCronWorkerRejectsBadSpec(t *testing.T) {
	_, err := NewCronWorker(&countingWorker{}, "not a cron", time.UTC, false)
	assert.Error(t, err)
}

func TestCronWorkerNextRunInLocation(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	cw, err := NewCronWorker(&countingWorker{}, "30 0,8,16 * * *", seoul, false)
	require.NoError(t, err)
	assert.True(t, cw.NextRun().IsZero())

	require.NoError(t, cw.Start(context.Background()))
	defer cw.Stop(time.Second)

	next := cw.NextRun().In(seoul)
	assert.Equal(t, 30, next.Minute())
	assert.Contains(t, []int{0, 8, 16}, next.Hour())
}

func TestCronWorkerRunOnStart(t *testing.T) {
	w := &countingWorker{delay: 50 * time.Millisecond, err: errors.New("boom")}
	cw, err := NewCronWorker(w, "0 0 1 1 *", time.UTC, true)
	require.NoError(t, err)

	require.NoError(t, cw.Start(context.Background()))

	// Stop waits for the start-up iteration
	cw.Stop(2 * time.Second)
	assert.Equal(t, int32(1), w.runs.Load())
}

func TestWorkerGroup(t *testing.T) {
	g := NewWorkerGroup(context.Background(), time.UTC)

	_, err := g.Add(&countingWorker{}, "bad", false)
	assert.Error(t, err)

	w := &countingWorker{}
	cw, err := g.Add(w, "@every 1h", true)
	require.NoError(t, err)

	require.NoError(t, g.Start())
	assert.False(t, cw.NextRun().IsZero())
	g.Stop(2 * time.Second)
	assert.Equal(t, int32(1), w.runs.Load())
}
