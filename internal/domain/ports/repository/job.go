package repository

import (
	"context"
	"time"

	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
)

// JobPatch carries the fields written together with a status change.
// Nil pointers leave the stored value untouched.
type JobPatch struct {
	Result       *string
	Images       []model.MediaRef
	ErrorMessage *string
	CompletedAt  *time.Time
}

// JobRepository is the durable record store for crew jobs.
//
// Transition is the linearization point for the job state machine: it must
// atomically update the record only when its current status is one of `from`,
// so that at most one of several racing transitions succeeds. A conditional
// update that matches no row because the job is in another status reports
// domain.ErrInvalidTransition; an unknown job id reports domain.ErrNotFound.
type JobRepository interface {
	Create(ctx context.Context, qx Tx, job *model.CrewJob) error
	Transition(ctx context.Context, qx Tx, jobID string, from []model.JobStatus, to model.JobStatus, patch *JobPatch) (*model.CrewJob, error)
	// SetImageStatus updates the independent image sub-task status without
	// touching the primary status.
	SetImageStatus(ctx context.Context, qx Tx, jobID string, status model.ImageStatus, images []model.MediaRef) error
	// FindByID is owner-scoped: a job belonging to another user is reported
	// as domain.ErrNotFound, never as a permission error.
	FindByID(ctx context.Context, qx Tx, jobID, userID string) (*model.CrewJob, error)
	ListByUser(ctx context.Context, qx Tx, userID string, offset, limit int) ([]*model.CrewJob, error)
}
