package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
	"github.com/happymalyo/elloms-crew-api/internal/infra/metrics"
)

const (
	topicMinLen    = 3
	topicMaxLen    = 500
	platformMaxLen = 100
	extraMaxLen    = 2000

	defaultPageSize = 50
	maxPageSize     = 100

	// terminal-state writes are retried on transient store faults; without a
	// recorded outcome the job is unobservable to its caller.
	terminalWriteAttempts = 3
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// SubmitInput is the caller-provided payload of a new job.
type SubmitInput struct {
	Topic             string
	Platform          string
	AdditionalContext string
	ConversationID    string
}

// Dispatcher schedules a pending job for background execution. Implemented by
// the worker package; injected after construction to keep the dependency
// direction use case -> port.
type Dispatcher interface {
	Dispatch(job *model.CrewJob) error
}

// JobUseCase is the sole authority over job state transitions. Begin,
// Complete and Fail are called by the execution path; Submit, Get and List
// serve the API surface.
type JobUseCase interface {
	Submit(ctx context.Context, userID string, in SubmitInput) (*model.CrewJob, error)
	Begin(ctx context.Context, jobID string) (*model.CrewJob, error)
	Complete(ctx context.Context, jobID string, result *adapter.CrewResult) error
	Fail(ctx context.Context, jobID, errMsg string) error
	SetImageStatus(ctx context.Context, jobID string, status model.ImageStatus, images []model.MediaRef) error
	Get(ctx context.Context, jobID, userID string) (*model.CrewJob, error)
	List(ctx context.Context, userID string, offset, limit int) ([]*model.CrewJob, error)
}

type jobUC struct {
	jobs       repository.JobRepository
	dispatcher Dispatcher
	log        *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, log *zerolog.Logger) *jobUC {
	return &jobUC{jobs: jobs, log: log}
}

// AttachDispatcher wires the execution side. Must be called before Submit.
func (u *jobUC) AttachDispatcher(d Dispatcher) { u.dispatcher = d }

func (u *jobUC) Submit(ctx context.Context, userID string, in SubmitInput) (*model.CrewJob, error) {
	if err := validateSubmit(&in); err != nil {
		return nil, err
	}

	job := model.NewCrewJob(uuid.NewString(), userID, in.ConversationID, in.Topic, in.Platform, in.AdditionalContext)
	if err := u.jobs.Create(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}
	metrics.IncJobSubmitted()

	if err := u.dispatcher.Dispatch(job); err != nil {
		// Fast-fail before execution: the record exists, so the caller still
		// gets a job id and can observe the failure by polling.
		u.log.Warn().Err(err).Str("job_id", job.ID).Msg("dispatch rejected, failing job")
		if ferr := u.Fail(ctx, job.ID, fmt.Sprintf("dispatch rejected: %v", err)); ferr != nil {
			u.log.Error().Err(ferr).Str("job_id", job.ID).Msg("could not record dispatch failure")
			return nil, fmt.Errorf("record dispatch failure: %w", ferr)
		}
		if failed, gerr := u.jobs.FindByID(ctx, nil, job.ID, userID); gerr == nil {
			return failed, nil
		}
		return job, nil
	}

	u.log.Info().Str("job_id", job.ID).Str("topic", job.Topic).Msg("job submitted")
	return job, nil
}

func (u *jobUC) Begin(ctx context.Context, jobID string) (*model.CrewJob, error) {
	job, err := u.jobs.Transition(ctx, nil, jobID,
		[]model.JobStatus{model.JobStatusPending}, model.JobStatusRunning, nil)
	if err != nil {
		return nil, err
	}
	u.log.Debug().Str("job_id", jobID).Msg("job running")
	return job, nil
}

func (u *jobUC) Complete(ctx context.Context, jobID string, result *adapter.CrewResult) error {
	if result == nil {
		return fmt.Errorf("%w: nil result", domain.ErrInvalidArgument)
	}
	now := time.Now()
	patch := &repository.JobPatch{
		Result:      &result.Text,
		Images:      result.Images,
		CompletedAt: &now,
	}
	job, err := u.transitionTerminal(ctx, jobID,
		[]model.JobStatus{model.JobStatusRunning}, model.JobStatusCompleted, patch)
	if err != nil {
		return err
	}
	metrics.IncJobProcessed(string(model.JobStatusCompleted))
	metrics.ObserveJobDuration(now.Sub(job.StartedAt).Seconds())
	u.log.Info().Str("job_id", jobID).Msg("job completed")
	return nil
}

func (u *jobUC) Fail(ctx context.Context, jobID, errMsg string) error {
	if errMsg == "" {
		errMsg = "unknown failure"
	}
	now := time.Now()
	patch := &repository.JobPatch{
		ErrorMessage: &errMsg,
		CompletedAt:  &now,
	}
	job, err := u.transitionTerminal(ctx, jobID,
		[]model.JobStatus{model.JobStatusPending, model.JobStatusRunning}, model.JobStatusFailed, patch)
	if err != nil {
		return err
	}
	metrics.IncJobProcessed(string(model.JobStatusFailed))
	metrics.ObserveJobDuration(now.Sub(job.StartedAt).Seconds())
	u.log.Info().Str("job_id", jobID).Str("error", errMsg).Msg("job failed")
	return nil
}

func (u *jobUC) SetImageStatus(ctx context.Context, jobID string, status model.ImageStatus, images []model.MediaRef) error {
	return u.jobs.SetImageStatus(ctx, nil, jobID, status, images)
}

func (u *jobUC) Get(ctx context.Context, jobID, userID string) (*model.CrewJob, error) {
	return u.jobs.FindByID(ctx, nil, jobID, userID)
}

func (u *jobUC) List(ctx context.Context, userID string, offset, limit int) ([]*model.CrewJob, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return u.jobs.ListByUser(ctx, nil, userID, offset, limit)
}

// transitionTerminal applies a terminal transition, retrying transient store
// faults. State-machine rejections are never retried: a lost race must
// surface as domain.ErrInvalidTransition so the loser cannot overwrite the
// winner's outcome.
func (u *jobUC) transitionTerminal(ctx context.Context, jobID string, from []model.JobStatus, to model.JobStatus, patch *repository.JobPatch) (*model.CrewJob, error) {
	var lastErr error
	for attempt := 1; attempt <= terminalWriteAttempts; attempt++ {
		job, err := u.jobs.Transition(ctx, nil, jobID, from, to, patch)
		if err == nil {
			return job, nil
		}
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		lastErr = err
		u.log.Warn().Err(err).Str("job_id", jobID).Int("attempt", attempt).Msg("terminal write failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	u.log.Error().Err(lastErr).Str("job_id", jobID).Str("target", string(to)).
		Msg("terminal state write exhausted retries; job record may be stuck in running")
	return nil, fmt.Errorf("persist terminal state %s: %w", to, lastErr)
}

func validateSubmit(in *SubmitInput) error {
	in.Topic = strings.TrimSpace(in.Topic)
	if n := len([]rune(in.Topic)); n < topicMinLen || n > topicMaxLen {
		return fmt.Errorf("%w: topic must be %d-%d characters", domain.ErrInvalidArgument, topicMinLen, topicMaxLen)
	}
	if len([]rune(in.Platform)) > platformMaxLen {
		return fmt.Errorf("%w: platform too long", domain.ErrInvalidArgument)
	}
	if len([]rune(in.AdditionalContext)) > extraMaxLen {
		return fmt.Errorf("%w: additional context too long", domain.ErrInvalidArgument)
	}
	return nil
}
