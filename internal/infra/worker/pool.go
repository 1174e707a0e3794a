package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
)

// A small worker pool that runs submitted tasks with bounded concurrency.

type Task func(ctx context.Context) error

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int

	// onErr receives task errors; defaults to a no-op.
	onErr func(err error)
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	return &Pool{
		jobs:  make(chan Task, queueSize),
		quit:  make(chan struct{}),
		n:     workers,
		onErr: func(error) {},
	}
}

// OnError sets the task error callback. Call before Start.
func (p *Pool) OnError(fn func(err error)) {
	if fn != nil {
		p.onErr = fn
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.onErr(err)
					}
				}
			}
		}()
	}
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// reject when saturated instead of blocking the submit path
		return domain.ErrQueueFull
	}
}
