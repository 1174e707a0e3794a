package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, 8)
	p.Start(context.Background())
	defer p.Stop()

	var done int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&done, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit(): %v", err)
		}
	}
	wg.Wait()
	if got := atomic.LoadInt32(&done); got != 5 {
		t.Errorf("tasks run = %d, want 5", got)
	}
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	p := NewPool(1, 1)
	// not started: nothing drains the queue, so the second submit must fill it
	if err := p.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first Submit(): %v", err)
	}
	err := p.Submit(func(ctx context.Context) error { return nil })
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("saturated Submit() error = %v, want ErrQueueFull", err)
	}
}

func TestPoolRejectsNilTask(t *testing.T) {
	p := NewPool(1, 1)
	if err := p.Submit(nil); err == nil {
		t.Error("Submit(nil) did not error")
	}
}

func TestPoolErrorCallback(t *testing.T) {
	p := NewPool(1, 4)
	errCh := make(chan error, 1)
	p.OnError(func(err error) { errCh <- err })
	p.Start(context.Background())
	defer p.Stop()

	boom := errors.New("boom")
	if err := p.Submit(func(ctx context.Context) error { return boom }); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, boom) {
			t.Errorf("callback error = %v, want boom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error callback never invoked")
	}
}

func TestPoolStopWaitsForWorkers(t *testing.T) {
	p := NewPool(2, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
