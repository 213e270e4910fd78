package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, q *Queue, id string, want Status) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		var ok bool
		st, ok = q.State(id)
		return ok && st.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestQueueRunsJobAndRecordsResult(t *testing.T) {
	finished := make(chan error, 1)
	q := NewQueue("test", func(_ context.Context, job Job) (interface{}, error) {
		return job.Payload, nil
	}, QueueConfig{OnFinish: func(_ Job, err error) { finished <- err }})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "echo", Payload: "done"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	st := waitForStatus(t, q, id, StatusSucceeded)
	assert.Equal(t, "done", st.Result)
	assert.Equal(t, 1, st.Attempts)
	require.NotNil(t, st.FinishedAt)
	assert.NoError(t, <-finished)
}

func TestQueueRetriesThenFails(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(context.Context, Job) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{ID: "job-1", Type: "fail"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	st := waitForStatus(t, q, id, StatusFailed)
	assert.Equal(t, "boom", st.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) (interface{}, error) { return nil, nil }, QueueConfig{})
	_, err := q.Enqueue(Job{Type: "noop"})
	assert.Error(t, err)
	_, ok := q.State("anything")
	assert.False(t, ok)
}
