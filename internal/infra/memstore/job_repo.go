// Package memstore provides in-memory reference implementations of the
// repository ports. They mirror the Postgres semantics, including the
// conditional status update, and back unit tests and dev mode.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.CrewJob
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*model.CrewJob)}
}

func (r *JobRepo) Create(ctx context.Context, qx repository.Tx, job *model.CrewJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := cloneJob(job)
	r.jobs[job.ID] = cp
	return nil
}

// Transition holds the store lock across check-and-update, which is what
// makes it a true compare-and-set: among racing callers exactly one observes
// a matching prior status.
func (r *JobRepo) Transition(ctx context.Context, qx repository.Tx, jobID string, from []model.JobStatus, to model.JobStatus, patch *repository.JobPatch) (*model.CrewJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !statusIn(job.Status, from) {
		return nil, domain.ErrInvalidTransition
	}
	job.Status = to
	job.UpdatedAt = time.Now()
	if patch != nil {
		if patch.Result != nil {
			job.Result = *patch.Result
		}
		if patch.Images != nil {
			job.Images = append([]model.MediaRef(nil), patch.Images...)
		}
		if patch.ErrorMessage != nil {
			job.ErrorMessage = *patch.ErrorMessage
		}
		if patch.CompletedAt != nil {
			t := *patch.CompletedAt
			job.CompletedAt = &t
		}
	}
	return cloneJob(job), nil
}

func (r *JobRepo) SetImageStatus(ctx context.Context, qx repository.Tx, jobID string, status model.ImageStatus, images []model.MediaRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.ImageStatus = status
	if images != nil {
		job.Images = append(job.Images, images...)
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (r *JobRepo) FindByID(ctx context.Context, qx repository.Tx, jobID, userID string) (*model.CrewJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *JobRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string, offset, limit int) ([]*model.CrewJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CrewJob
	for _, j := range r.jobs {
		if j.UserID == userID {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	if offset >= len(out) {
		return []*model.CrewJob{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func statusIn(s model.JobStatus, set []model.JobStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func cloneJob(j *model.CrewJob) *model.CrewJob {
	cp := *j
	cp.Images = append([]model.MediaRef(nil), j.Images...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
