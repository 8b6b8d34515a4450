package worker

import (
	"context"
	"sort"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type queuedJob struct {
	seq int
	job Job
}

// Pool manages a pool of workers that execute jobs concurrently.
// Results are collected in submission order.
type Pool struct {
	workers    int
	jobQueue   chan queuedJob
	collector  *ResultCollector
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu        sync.Mutex
	submitted int
	closed    bool
}

// NewPool creates a worker pool bound to parent. Cancelling parent stops
// workers from picking up further jobs.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan queuedJob, workers*2),
		collector:  NewResultCollector(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			p.collector.Set(q.seq, q.job.Execute(p.ctx))
		}
	}
}

// Submit queues a job. It returns false when the pool is shut down or
// already waiting.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- queuedJob{seq: p.submitted, job: job}:
		p.submitted++
		return true
	}
}

// Wait closes the queue, waits for workers and returns the results of every
// executed job in submission order
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.cancelFunc()
	return p.collector.Results()
}

// Shutdown stops the pool without waiting for queued jobs
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.close()
	p.wg.Wait()
}

func (p *Pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
}

// ResultCollector gathers results keyed by submission sequence
type ResultCollector struct {
	results map[int]Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make(map[int]Result),
	}
}

// Set records the result for sequence number seq (thread-safe)
func (c *ResultCollector) Set(seq int, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[seq] = result
}

// Results returns collected results ordered by sequence number
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	seqs := make([]int, 0, len(c.results))
	for seq := range c.results {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	out := make([]Result, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, c.results[seq])
	}
	return out
}
