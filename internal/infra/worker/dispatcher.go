package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/infra/logging"
	"github.com/happymalyo/elloms-crew-api/internal/usecase"
)

// Compile-time check
var _ usecase.Dispatcher = (*Dispatcher)(nil)

// Dispatcher detaches job execution from the request path. Each dispatched
// job runs as one pool task: begin, assemble context, invoke the generation
// capability under a deadline, then record the terminal state. Failures of
// the recording step itself are logged and never propagated; at that point
// no caller is waiting.
type Dispatcher struct {
	pool      *Pool
	lifecycle usecase.JobUseCase
	contexts  *usecase.ContextBuilder
	convs     usecase.ConversationUseCase
	crew      adapter.CrewAdapter
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewDispatcher(
	pool *Pool,
	lifecycle usecase.JobUseCase,
	contexts *usecase.ContextBuilder,
	convs usecase.ConversationUseCase,
	crew adapter.CrewAdapter,
	timeout time.Duration,
	log *zerolog.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Dispatcher{
		pool:      pool,
		lifecycle: lifecycle,
		contexts:  contexts,
		convs:     convs,
		crew:      crew,
		timeout:   timeout,
		log:       log,
	}
}

// Dispatch schedules the job onto the pool. The job travels by value so the
// execution task never shares mutable state with the submitting request.
func (d *Dispatcher) Dispatch(job *model.CrewJob) error {
	j := *job
	return d.pool.Submit(func(ctx context.Context) error {
		d.run(ctx, &j)
		return nil
	})
}

func (d *Dispatcher) run(ctx context.Context, job *model.CrewJob) {
	ctx = logging.WithJobID(ctx, job.ID)
	ctx = logging.WithUserID(ctx, job.UserID)
	log := logging.With(ctx, d.log)

	if _, err := d.lifecycle.Begin(ctx, job.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// double dispatch; someone else already owns this job
			log.Debug().Msg("begin rejected, job already picked up")
			return
		}
		log.Error().Err(err).Msg("begin failed, aborting execution")
		return
	}

	input := adapter.CrewInput{
		Topic:             job.Topic,
		Platform:          job.Platform,
		AdditionalContext: job.AdditionalContext,
	}
	history := d.contexts.Build(ctx, job.ConversationID, job.UserID)

	gctx, cancel := context.WithTimeout(ctx, d.timeout)
	result, err := d.crew.Generate(gctx, input, history)
	cancel()
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("%s after %s", domain.ErrGenerationTimeout, d.timeout)
		}
		d.recordFailure(ctx, job.ID, msg, log)
		return
	}

	if err := d.lifecycle.Complete(ctx, job.ID, result); err != nil {
		// A rejected transition means a concurrent fail/complete won the
		// race; anything else is the unrecoverable persist-after-success
		// case surfaced in the log.
		log.Error().Err(err).Msg("could not record completion")
		return
	}

	d.appendResultMessage(ctx, job, result, log)
	d.runImagePipeline(ctx, job, log)
}

func (d *Dispatcher) recordFailure(ctx context.Context, jobID, msg string, log *zerolog.Logger) {
	if err := d.lifecycle.Fail(ctx, jobID, msg); err != nil {
		log.Error().Err(err).Str("cause", msg).Msg("could not record failure")
	}
}

// appendResultMessage writes the result into the linked conversation.
// Best-effort: the job's terminal state is already durable and must not be
// invalidated by a failed append.
func (d *Dispatcher) appendResultMessage(ctx context.Context, job *model.CrewJob, result *adapter.CrewResult, log *zerolog.Logger) {
	if job.ConversationID == "" {
		return
	}
	meta := map[string]string{"job_id": job.ID}
	if _, err := d.convs.AppendMessage(ctx, job.ConversationID, job.UserID, model.RoleAssistant, result.Text, meta); err != nil {
		log.Warn().Err(err).Str("conversation_id", job.ConversationID).Msg("result message append failed")
	}
}

// runImagePipeline drives the independent image sub-task for
// platform-targeted jobs. Its status is tracked separately and never touches
// the primary job status.
func (d *Dispatcher) runImagePipeline(ctx context.Context, job *model.CrewJob, log *zerolog.Logger) {
	if job.Platform == "" {
		return
	}
	input := adapter.CrewInput{Topic: job.Topic, Platform: job.Platform}

	if err := d.lifecycle.SetImageStatus(ctx, job.ID, model.ImageStatusRunning, nil); err != nil {
		log.Warn().Err(err).Msg("image status update failed")
		return
	}
	ictx, cancel := context.WithTimeout(ctx, d.timeout)
	refs, err := d.crew.CurateImages(ictx, input)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrNotSupported) {
			_ = d.lifecycle.SetImageStatus(ctx, job.ID, model.ImageStatusNone, nil)
			return
		}
		log.Warn().Err(err).Msg("image curation failed")
		if serr := d.lifecycle.SetImageStatus(ctx, job.ID, model.ImageStatusFailed, nil); serr != nil {
			log.Warn().Err(serr).Msg("image status update failed")
		}
		return
	}
	if err := d.lifecycle.SetImageStatus(ctx, job.ID, model.ImageStatusCompleted, refs); err != nil {
		log.Warn().Err(err).Msg("image status update failed")
	}
}
