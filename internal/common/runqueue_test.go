package common

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingJob struct {
	mu      sync.Mutex
	state   int
	seen    []int
	release chan struct{}
}

func (j *recordingJob) run(ctx context.Context) {
	j.mu.Lock()
	j.seen = append(j.seen, j.state)
	j.mu.Unlock()
	<-j.release
}

func (j *recordingJob) setState(v int) {
	j.mu.Lock()
	j.state = v
	j.mu.Unlock()
}

func (j *recordingJob) runs() []int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]int(nil), j.seen...)
}

func TestRunQueueSingleRun(t *testing.T) {
	job := &recordingJob{release: make(chan struct{})}
	close(job.release)
	q := NewRunQueue(job.run, nil)

	require.NoError(t, q.Trigger(context.Background()))
	require.NoError(t, q.Trigger(context.Background()))

	assert.Equal(t, []int{0, 0}, job.runs())
	assert.False(t, q.Running())
}

func TestRunQueueSecondTriggerWaitsForFirst(t *testing.T) {
	job := &recordingJob{release: make(chan struct{})}
	q := NewRunQueue(job.run, nil)

	job.setState(1)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, q.Trigger(context.Background()))
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	job.setState(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, q.Trigger(context.Background()))
	}()
	require.Eventually(t, func() bool { return q.Waiting() == 1 }, time.Second, time.Millisecond)

	close(job.release)
	wg.Wait()

	assert.Equal(t, []int{1, 2}, job.runs())
}

func TestRunQueueTriggersDoNotStack(t *testing.T) {
	job := &recordingJob{release: make(chan struct{})}
	q := NewRunQueue(job.run, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, q.Trigger(context.Background()))
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, q.Trigger(context.Background()))
		}()
	}
	require.Eventually(t, func() bool { return q.Waiting() == 3 }, time.Second, time.Millisecond)

	close(job.release)
	wg.Wait()

	assert.Len(t, job.runs(), 2)
}

func TestRunQueueWaiterContextCancelled(t *testing.T) {
	job := &recordingJob{release: make(chan struct{})}
	q := NewRunQueue(job.run, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, q.Trigger(context.Background()))
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Trigger(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(job.release)
	<-done
	// the pending run was already booked before the waiter gave up
	assert.Len(t, job.runs(), 2)
}

func TestRunQueueFollowUpUsesBaseContext(t *testing.T) {
	base, stop := context.WithCancel(context.Background())
	stop()

	release := make(chan struct{})
	var mu sync.Mutex
	var errs []error
	q := NewRunQueue(func(ctx context.Context) {
		mu.Lock()
		errs = append(errs, ctx.Err())
		first := len(errs) == 1
		mu.Unlock()
		if first {
			<-release
		}
	}, func() context.Context { return base })

	var wg sync.WaitGroup
	wg.Go(func() { assert.NoError(t, q.Trigger(context.Background())) })
	require.Eventually(t, q.Running, time.Second, time.Millisecond)
	wg.Go(func() { assert.NoError(t, q.Trigger(context.Background())) })
	require.Eventually(t, func() bool { return q.Waiting() == 1 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], context.Canceled, "the extra run stops with the base context")
}

func TestRunQueueFollowUpOutlivesFirstCaller(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var errs []error
	q := NewRunQueue(func(ctx context.Context) {
		mu.Lock()
		errs = append(errs, ctx.Err())
		first := len(errs) == 1
		mu.Unlock()
		if first {
			<-release
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() { assert.NoError(t, q.Trigger(ctx)) })
	require.Eventually(t, q.Running, time.Second, time.Millisecond)
	wg.Go(func() { assert.NoError(t, q.Trigger(context.Background())) })
	require.Eventually(t, func() bool { return q.Waiting() == 1 }, time.Second, time.Millisecond)

	cancel()
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.NoError(t, errs[1])
}
