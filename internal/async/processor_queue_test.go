package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

type recorder struct {
	mu     sync.Mutex
	paths  []string
	traces []string
}

func (r *recorder) Handle(ctx context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, job.Path)
	r.traces = append(r.traces, common.RequestIDFromContext(ctx))
	if job.Path == "bad.pdf" {
		return errors.New("boom")
	}
	if job.Path == "panic.pdf" {
		panic("unexpected")
	}
	return nil
}

func TestQueueProcessesInOrderWithSingleWorker(t *testing.T) {
	rec := &recorder{}
	q := NewProcessorQueue(rec, nil, WithQueueSize(2))

	want := []string{"a.pdf", "b.pdf", "bad.pdf", "c.pdf", "panic.pdf", "d.pdf"}
	for _, p := range want {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p, TraceID: "t-" + p}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, want, rec.paths)
	assert.Equal(t, "t-a.pdf", rec.traces[0])
	assert.Equal(t, Stats{Processed: 4, Failed: 2}, q.Stats())
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(HandlerFunc(func(context.Context, Job) error { return nil }), nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.pdf"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueRespectsContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewProcessorQueue(HandlerFunc(func(context.Context, Job) error {
		<-release
		return nil
	}), nil, WithQueueSize(1))
	defer func() {
		close(release)
		q.Shutdown(context.Background())
	}()

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.pdf"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "3.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
