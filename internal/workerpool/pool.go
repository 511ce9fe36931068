// Package workerpool provides a bounded task pool with an explicit rejection policy.
package workerpool

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrPoolSaturated is returned by Submit under PolicyAbort when the queue is full.
	ErrPoolSaturated = errors.New("worker pool saturated")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("worker pool closed")
)

// Policy decides what Submit does when the queue is full.
type Policy int

const (
	// PolicyCallerRuns runs the task on the submitting goroutine.
	PolicyCallerRuns Policy = iota
	// PolicyAbort rejects the task with ErrPoolSaturated.
	PolicyAbort
)

func (p Policy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "caller-runs"
}

// Config sizes a pool.
type Config struct {
	Name      string
	Workers   int
	QueueSize int
	Policy    Policy
}

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	name   string
	policy Policy
	tasks  chan func()
	group  errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts cfg.Workers workers. Workers below 1 are raised to 1.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue < 0 {
		queue = 0
	}

	p := &Pool{
		name:   cfg.Name,
		policy: cfg.Policy,
		tasks:  make(chan func(), queue),
	}
	for i := 0; i < workers; i++ {
		p.group.Go(func() error {
			for task := range p.tasks {
				task()
			}
			return nil
		})
	}
	return p
}

// Name returns the pool name used in logs.
func (p *Pool) Name() string { return p.name }

// Submit hands task to an idle worker or the queue. When both are full the
// pool's policy applies: the caller runs it, or ErrPoolSaturated is returned.
func (p *Pool) Submit(task func()) error {
	queued, err := p.offer(task)
	if err != nil || queued {
		return err
	}

	if p.policy == PolicyAbort {
		return ErrPoolSaturated
	}
	task()
	return nil
}

func (p *Pool) offer(task func()) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false, ErrClosed
	}
	select {
	case p.tasks <- task:
		return true, nil
	default:
		return false, nil
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	_ = p.group.Wait()
}
