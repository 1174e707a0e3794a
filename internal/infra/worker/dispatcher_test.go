package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/infra/adapters/crew"
	"github.com/happymalyo/elloms-crew-api/internal/infra/memstore"
	"github.com/happymalyo/elloms-crew-api/internal/usecase"
)

// slowCrew blocks Generate until the deadline fires.
type slowCrew struct {
	crew.StaticCrew
}

func (s *slowCrew) Generate(ctx context.Context, input adapter.CrewInput, history []adapter.Message) (*adapter.CrewResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type env struct {
	jobs     usecase.JobUseCase
	convs    usecase.ConversationUseCase
	jobRepo  *memstore.JobRepo
	convRepo *memstore.ConversationRepo
	disp     *Dispatcher
}

func newEnv(t *testing.T, ca adapter.CrewAdapter, timeout time.Duration) *env {
	t.Helper()
	log := zerolog.New(io.Discard)
	return newEnvWithLogger(t, ca, timeout, &log)
}

func newEnvWithLogger(t *testing.T, ca adapter.CrewAdapter, timeout time.Duration, log *zerolog.Logger) *env {
	t.Helper()

	jobRepo := memstore.NewJobRepo()
	convRepo := memstore.NewConversationRepo()
	jobUC := usecase.NewJobUseCase(jobRepo, log)
	convUC := usecase.NewConversationUseCase(convRepo, convRepo, nil)
	cb := usecase.NewContextBuilder(convRepo, convRepo, 8, 500, log)

	pool := NewPool(2, 16)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	disp := NewDispatcher(pool, jobUC, cb, convUC, ca, timeout, log)
	jobUC.AttachDispatcher(disp)

	return &env{jobs: jobUC, convs: convUC, jobRepo: jobRepo, convRepo: convRepo, disp: disp}
}

// waitTerminal polls until the job leaves pending/running or the deadline hits.
func waitTerminal(t *testing.T, e *env, jobID, userID string) *model.CrewJob {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		job, err := e.jobs.Get(context.Background(), jobID, userID)
		if err != nil {
			t.Fatalf("Get(%s): %v", jobID, err)
		}
		if job.Status.Terminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s stuck in %s", jobID, job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func waitImageStatus(t *testing.T, e *env, jobID, userID string, want model.ImageStatus) *model.CrewJob {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		job, err := e.jobs.Get(context.Background(), jobID, userID)
		if err != nil {
			t.Fatalf("Get(%s): %v", jobID, err)
		}
		if job.ImageStatus == want {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("image status of %s = %s, want %s", jobID, job.ImageStatus, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDispatchSuccess(t *testing.T) {
	e := newEnv(t, crew.NewStaticCrew(), time.Minute)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "AI in education"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	got := waitTerminal(t, e, job.ID, "u1")
	if got.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", got.Status, got.ErrorMessage)
	}
	if got.Result == "" {
		t.Error("completed job has empty result")
	}
	if got.CompletedAt == nil {
		t.Error("completed job has no completion timestamp")
	}
	if got.ImageStatus != model.ImageStatusNone {
		t.Errorf("platform-less job image status = %s, want none", got.ImageStatus)
	}
}

func TestDispatchFailure(t *testing.T) {
	e := newEnv(t, &crew.StaticCrew{Err: errors.New("provider down")}, time.Minute)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "doomed generation"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	got := waitTerminal(t, e, job.ID, "u1")
	if got.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage != "provider down" {
		t.Errorf("error message = %q, want provider error", got.ErrorMessage)
	}
	if got.Result != "" {
		t.Errorf("failed job carries result %q", got.Result)
	}
}

func TestDispatchTimeout(t *testing.T) {
	e := newEnv(t, &slowCrew{}, 30*time.Millisecond)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "slow generation"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	got := waitTerminal(t, e, job.ID, "u1")
	if got.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "generation timed out") {
		t.Errorf("error message = %q, want timeout message", got.ErrorMessage)
	}
}

func TestDispatchUsesConversationContext(t *testing.T) {
	e := newEnv(t, crew.NewStaticCrew(), time.Minute)
	ctx := context.Background()

	conv, err := e.convs.Create(ctx, "u1", "history")
	if err != nil {
		t.Fatalf("Create conversation: %v", err)
	}
	if _, err := e.convs.AppendMessage(ctx, conv.ID, "u1", model.RoleUser, "earlier question", nil); err != nil {
		t.Fatalf("AppendMessage(): %v", err)
	}

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "follow-up article", ConversationID: conv.ID})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	got := waitTerminal(t, e, job.ID, "u1")
	if got.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	// static crew echoes the history size into the result
	if !strings.Contains(got.Result, "1 prior message") {
		t.Errorf("result %q does not reflect conversation context", got.Result)
	}

	// the result lands in the conversation as an assistant message
	var assistant *model.Message
	deadline := time.After(3 * time.Second)
	for assistant == nil {
		msgs, err := e.convs.Messages(ctx, conv.ID, "u1")
		if err != nil {
			t.Fatalf("Messages(): %v", err)
		}
		for _, m := range msgs {
			if m.Role == model.RoleAssistant {
				assistant = m
			}
		}
		if assistant == nil {
			select {
			case <-deadline:
				t.Fatal("assistant message never appended")
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
	if assistant.Content != got.Result {
		t.Error("assistant message does not carry the job result")
	}
	if assistant.Metadata["job_id"] != job.ID {
		t.Errorf("assistant message metadata job_id = %q, want %q", assistant.Metadata["job_id"], job.ID)
	}
}

func TestDispatchImagePipeline(t *testing.T) {
	e := newEnv(t, crew.NewStaticCrew(), time.Minute)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "visual story", Platform: "instagram"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if got := waitTerminal(t, e, job.ID, "u1"); got.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	got := waitImageStatus(t, e, job.ID, "u1", model.ImageStatusCompleted)
	if len(got.Images) == 0 {
		t.Error("no images recorded")
	}
	if got.Status != model.JobStatusCompleted {
		t.Error("image pipeline regressed the primary status")
	}
}

func TestDispatchImagesUnsupported(t *testing.T) {
	e := newEnv(t, &unsupportedImagesCrew{}, time.Minute)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "text only platform run", Platform: "blog"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if got := waitTerminal(t, e, job.ID, "u1"); got.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	// the pipeline flips to running before resetting; give it time to settle
	time.Sleep(100 * time.Millisecond)
	got, _ := e.jobs.Get(ctx, job.ID, "u1")
	if got.ImageStatus != model.ImageStatusNone {
		t.Errorf("image status = %s, want none when curation is unsupported", got.ImageStatus)
	}
}

type unsupportedImagesCrew struct {
	crew.StaticCrew
}

func (c *unsupportedImagesCrew) CurateImages(ctx context.Context, input adapter.CrewInput) ([]model.MediaRef, error) {
	return nil, domain.ErrNotSupported
}

func TestDoubleDispatchIsHarmless(t *testing.T) {
	e := newEnv(t, crew.NewStaticCrew(), time.Minute)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "double dispatch"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	// a second dispatch of the same record must lose the Begin claim and
	// leave the winner's outcome intact
	if err := e.disp.Dispatch(job); err != nil {
		t.Fatalf("second Dispatch(): %v", err)
	}

	got := waitTerminal(t, e, job.ID, "u1")
	if got.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	// give the losing task time to run before checking for corruption
	time.Sleep(50 * time.Millisecond)
	again, _ := e.jobs.Get(ctx, job.ID, "u1")
	if again.Status != model.JobStatusCompleted || again.Result == "" {
		t.Errorf("losing dispatch corrupted the record: status=%s result=%q", again.Status, again.Result)
	}
}

// lockedBuffer guards the log sink against concurrent pool workers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestExecutionLogsCarryJobFields(t *testing.T) {
	var logs lockedBuffer
	log := zerolog.New(&logs)
	e := newEnvWithLogger(t, crew.NewStaticCrew(), time.Minute, &log)
	ctx := context.Background()

	job, err := e.jobs.Submit(ctx, "u1", usecase.SubmitInput{Topic: "log fields"})
	if err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	waitTerminal(t, e, job.ID, "u1")

	// a losing re-dispatch logs through the per-job logger
	if err := e.disp.Dispatch(job); err != nil {
		t.Fatalf("second Dispatch(): %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		for _, line := range strings.Split(logs.String(), "\n") {
			if !strings.Contains(line, "already picked up") {
				continue
			}
			if !strings.Contains(line, `"job_id":"`+job.ID+`"`) {
				t.Fatalf("per-job log line missing job_id: %q", line)
			}
			if !strings.Contains(line, `"user_id":"u1"`) {
				t.Fatalf("per-job log line missing user_id: %q", line)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("no per-job log line observed: %q", logs.String())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
