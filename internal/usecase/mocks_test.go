package usecase

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Dispatcher fakes

// captureDispatcher records dispatched jobs without running them, so a test
// can drive the lifecycle by hand.
type captureDispatcher struct {
	mu   sync.Mutex
	jobs []*model.CrewJob
	err  error
}

func (d *captureDispatcher) Dispatch(job *model.CrewJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	j := *job
	d.jobs = append(d.jobs, &j)
	return nil
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

// --- Job repository fakes

// flakyJobRepo fails the first N Transition calls with a transient error
// before delegating, to exercise the terminal-write retry.
type flakyJobRepo struct {
	repository.JobRepository
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (r *flakyJobRepo) Transition(ctx context.Context, qx repository.Tx, jobID string, from []model.JobStatus, to model.JobStatus, patch *repository.JobPatch) (*model.CrewJob, error) {
	r.mu.Lock()
	r.calls++
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	r.mu.Unlock()
	if fail {
		return nil, r.err
	}
	return r.JobRepository.Transition(ctx, qx, jobID, from, to, patch)
}

func (r *flakyJobRepo) transitionCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
