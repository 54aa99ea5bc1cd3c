package analyzer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-genre/logging"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free
	ErrQueueFull = errors.New("analysis queue is full")
	// ErrPoolStopped is returned by Submit after Stop
	ErrPoolStopped = errors.New("analysis pool is stopped")
)

// Job is one queued analysis
type Job struct {
	ID          string
	Path        string
	MaxDuration float64
}

// NewJob creates a job with a fresh ID
func NewJob(path string, maxDuration float64) Job {
	return Job{ID: uuid.NewString(), Path: path, MaxDuration: maxDuration}
}

// Future delivers the outcome of a submitted job exactly once
type Future struct {
	ID string

	done   chan struct{}
	result *Result
	err    error
}

func newFuture(id string) *Future {
	return &Future{ID: id, done: make(chan struct{})}
}

func (f *Future) complete(result *Result, err error) {
	f.result, f.err = result, err
	close(f.done)
}

// Done is closed when the job has finished
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job finishes or ctx is done. Giving up on the wait
// does not cancel the job.
func (f *Future) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type task struct {
	job    Job
	future *Future
}

// Pool runs analyses on background workers fed from a bounded queue
type Pool struct {
	analyzer *Analyzer
	workers  int
	jobs     chan task
	wg       sync.WaitGroup
	mu       sync.RWMutex
	started  bool
	stopped  bool
	logger   logging.Logger
}

// NewPool creates a pool with the given worker count and queue size
func NewPool(a *Analyzer, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if a == nil {
		a = NewDefault()
	}
	return &Pool{
		analyzer: a,
		workers:  workers,
		jobs:     make(chan task, queueSize),
		logger: logging.WithFields(logging.Fields{
			"component": "analysis_pool",
		}),
	}
}

// Start launches the worker goroutines. Calling it again is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := range p.workers {
		p.wg.Add(1)
		go p.run(i + 1)
	}

	p.logger.Debug("Analysis pool started", logging.Fields{
		"workers":    p.workers,
		"queue_size": cap(p.jobs),
	})
}

// Stop closes the queue and waits for queued and running jobs to finish
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		// Nobody will drain the queue; fail what is waiting
		for t := range p.jobs {
			t.future.complete(nil, ErrPoolStopped)
		}
		return
	}

	p.wg.Wait()
	p.logger.Debug("Analysis pool stopped")
}

// Submit queues a job without blocking. A job without an ID is given one.
func (p *Pool) Submit(ctx context.Context, job Job) (*Future, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return nil, ErrPoolStopped
	}

	future := newFuture(job.ID)
	select {
	case p.jobs <- task{job: job, future: future}:
		p.logger.Debug("Job queued", logging.Fields{
			"job_id": job.ID,
			"path":   job.Path,
		})
		return future, nil
	default:
		p.logger.Warn("Dropping job, queue is full", logging.Fields{
			"job_id": job.ID,
			"path":   job.Path,
		})
		return nil, ErrQueueFull
	}
}

func (p *Pool) run(worker int) {
	defer p.wg.Done()

	for t := range p.jobs {
		logger := p.logger.WithFields(logging.Fields{
			"worker": worker,
			"job_id": t.job.ID,
		})
		logger.Debug("Job started")

		result, err := p.analyzer.Analyze(t.job.Path, t.job.MaxDuration)
		t.future.complete(result, err)

		if err != nil {
			logger.Debug("Job failed", logging.Fields{"error": err.Error()})
			continue
		}
		logger.Debug("Job completed", logging.Fields{"genre": result.Label})
	}
}
