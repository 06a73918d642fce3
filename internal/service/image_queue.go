package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/internal/metrics"
)

// ErrQueueClosed is returned for jobs submitted to, or still queued in, a
// closed ImageQueue.
var ErrQueueClosed = errors.New("image queue closed")

// RenderFunc renders and attaches the image of one recipe, returning its URL.
type RenderFunc func(ctx context.Context, description string, recipeID uuid.UUID) (string, error)

// ImageJob is a handle on one queued render.
type ImageJob struct {
	RecipeID    uuid.UUID
	Description string

	done chan struct{}
	url  string
	err  error
}

func (j *ImageJob) complete(url string, err error) {
	j.url, j.err = url, err
	close(j.done)
}

// Done is closed when the job has finished, successfully or not.
func (j *ImageJob) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns the attached image URL.
func (j *ImageJob) Wait(ctx context.Context) (string, error) {
	select {
	case <-j.done:
		return j.url, j.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ImageQueue is the ImageRenderer backed by a bounded worker pool.
type ImageQueue struct {
	render RenderFunc
	jobs   chan *ImageJob
	log    *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	// sendMu is held for reading while a job is handed to the channel and
	// for writing when the queue closes.
	sendMu sync.RWMutex
	closed bool

	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

// NewImageQueue starts workers goroutines consuming a queue of size jobs.
func NewImageQueue(render RenderFunc, workers, size int, log *zap.Logger) *ImageQueue {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	q := &ImageQueue{
		render: render,
		jobs:   make(chan *ImageJob, size),
		log:    log.Named("image_queue"),
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
	}
	q.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

// Enqueue submits a render job. It blocks while the queue is full; ctx bounds
// that wait only, never the render itself.
func (q *ImageQueue) Enqueue(ctx context.Context, description string, recipeID uuid.UUID) (*ImageJob, error) {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	job := &ImageJob{RecipeID: recipeID, Description: description, done: make(chan struct{})}
	q.begin()

	select {
	case q.jobs <- job:
		q.log.Debug("image job queued", zap.String("recipe_id", recipeID.String()))
		return job, nil
	case <-ctx.Done():
		q.finish()
		metrics.ImageJobsTotal.WithLabelValues("dropped").Inc()
		return nil, ctx.Err()
	}
}

// Wait blocks until no job is queued or running.
func (q *ImageQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs, waits for queued ones to finish and stops
// the workers. Jobs still queued when ctx expires fail with ErrQueueClosed.
func (q *ImageQueue) Shutdown(ctx context.Context) error {
	q.markClosed()
	err := q.Wait(ctx)
	q.stop()
	return err
}

// Close stops the workers without waiting for queued jobs.
func (q *ImageQueue) Close() {
	q.markClosed()
	q.stop()
}

func (q *ImageQueue) markClosed() {
	q.sendMu.Lock()
	q.closed = true
	q.sendMu.Unlock()
}

func (q *ImageQueue) stop() {
	q.cancel()
	q.workers.Wait()
	for {
		select {
		case job := <-q.jobs:
			job.complete("", ErrQueueClosed)
			metrics.ImageJobsTotal.WithLabelValues("dropped").Inc()
			q.finish()
		default:
			return
		}
	}
}

func (q *ImageQueue) worker() {
	defer q.workers.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *ImageQueue) run(job *ImageJob) {
	log := q.log.With(zap.String("recipe_id", job.RecipeID.String()))
	defer q.finish()
	if q.ctx.Err() != nil {
		metrics.ImageJobsTotal.WithLabelValues("dropped").Inc()
		job.complete("", ErrQueueClosed)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("image job panicked", zap.Any("panic", r))
			metrics.ImageJobsTotal.WithLabelValues("failed").Inc()
			job.complete("", errors.New("image job panicked"))
		}
	}()

	url, err := q.render(q.ctx, job.Description, job.RecipeID)
	if err != nil {
		log.Error("image job failed", zap.Error(err))
		metrics.ImageJobsTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.ImageJobsTotal.WithLabelValues("ok").Inc()
	}
	job.complete(url, err)
}

func (q *ImageQueue) begin() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	metrics.ImageQueueDepth.Inc()
}

func (q *ImageQueue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	metrics.ImageQueueDepth.Dec()
	if q.pending == 0 {
		close(q.idle)
	}
}
