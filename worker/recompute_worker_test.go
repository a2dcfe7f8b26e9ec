package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRecomputer struct {
	calls int32
	err   error
}

func (c *countingRecomputer) RecomputeAll(context.Context) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	return 3, c.err
}

type countingSweeper struct {
	calls int32
}

func (c *countingSweeper) Sweep() int {
	atomic.AddInt32(&c.calls, 1)
	return 1
}

func runWorker(w *RecomputeWorker) (context.CancelFunc, chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	return cancel, done
}

func TestRunRecomputesEveryInterval(t *testing.T) {
	engine := &countingRecomputer{}
	sweeper := &countingSweeper{}
	w := NewRecomputeWorker(engine, func() time.Duration { return 5 * time.Millisecond }, sweeper)

	cancel, done := runWorker(w)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&engine.calls) >= 2 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sweeper.calls) >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDisabledWorkerOnlySweeps(t *testing.T) {
	engine := &countingRecomputer{}
	sweeper := &countingSweeper{}
	w := NewRecomputeWorker(engine, func() time.Duration { return 0 }, sweeper)
	w.idle = 5 * time.Millisecond

	cancel, done := runWorker(w)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sweeper.calls) >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(0), atomic.LoadInt32(&engine.calls))
}

func TestProcessRecomputeReportsCount(t *testing.T) {
	w := NewRecomputeWorker(&countingRecomputer{}, func() time.Duration { return time.Hour })
	assert.Equal(t, 3, w.ProcessRecompute(context.Background()))

	failing := NewRecomputeWorker(&countingRecomputer{err: fmt.Errorf("store down")}, func() time.Duration { return time.Hour })
	assert.Equal(t, 3, failing.ProcessRecompute(context.Background()))
}
