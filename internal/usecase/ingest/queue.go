package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

// TaskFunc does the work of one task and reports how many chunks it indexed.
type TaskFunc func(ctx context.Context) (int, error)

// TaskResult is handed to the completion hook after every task.
type TaskResult struct {
	ID       string
	Name     string
	Chunks   int
	Duration time.Duration
	Err      error
}

type task struct {
	id   string
	name string
	fn   TaskFunc
}

// Queue runs indexing tasks on a fixed worker pool fed by a bounded channel.
// Tasks still waiting when the process exits are lost.
type Queue struct {
	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	onDone func(TaskResult)
	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithOnDone registers a hook called after each task finishes, successfully or not.
func WithOnDone(fn func(TaskResult)) QueueOption {
	return func(q *Queue) { q.onDone = fn }
}

// WithQueueLogger sets the worker logger.
func WithQueueLogger(l *zap.Logger) QueueOption {
	return func(q *Queue) { q.logger = l }
}

// NewQueue starts workers goroutines reading from a buffer of size slots.
func NewQueue(workers, size int, opts ...QueueOption) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:  make(chan task, size),
		ctx:    ctx,
		cancel: cancel,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(q)
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(workerID int) {
			defer q.wg.Done()
			q.worker(workerID)
		}(i)
	}
	return q
}

// Submit enqueues fn without blocking and returns the task id.
func (q *Queue) Submit(name string, fn TaskFunc) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return "", domain.ErrQueueClosed
	}

	t := task{id: uuid.NewString(), name: name, fn: fn}
	select {
	case q.tasks <- t:
		metrics.IngestQueueDepth.Inc()
		return t.id, nil
	default:
		metrics.IngestTasksTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("task %s: %w", name, domain.ErrQueueFull)
	}
}

// Close stops intake and waits for queued and running tasks.
// When ctx expires first, running tasks are cancelled and ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return fmt.Errorf("drain indexing queue: %w", ctx.Err())
	}
}

func (q *Queue) worker(id int) {
	for t := range q.tasks {
		metrics.IngestQueueDepth.Dec()
		q.run(id, t)
	}
}

func (q *Queue) run(workerID int, t task) {
	log := q.logger.With(
		zap.Int("worker", workerID),
		zap.String("task_id", t.id),
		zap.String("task", t.name),
	)
	log.Info("Indexing task started")

	start := time.Now()
	chunks, err := q.safeRun(t)
	res := TaskResult{ID: t.id, Name: t.name, Chunks: chunks, Duration: time.Since(start), Err: err}

	metrics.IngestTaskDuration.Observe(res.Duration.Seconds())
	if err != nil {
		metrics.IngestTasksTotal.WithLabelValues("error").Inc()
		log.Error("Indexing task failed", zap.Duration("duration", res.Duration), zap.Error(err))
	} else {
		metrics.IngestTasksTotal.WithLabelValues("ok").Inc()
		metrics.IngestChunksTotal.Add(float64(chunks))
		log.Info("Indexing task finished", zap.Duration("duration", res.Duration), zap.Int("chunks", chunks))
	}

	if q.onDone != nil {
		q.onDone(res)
	}
}

func (q *Queue) safeRun(t task) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn(q.ctx)
}
