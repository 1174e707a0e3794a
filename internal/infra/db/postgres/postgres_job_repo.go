package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `
job_id, user_id, conversation_id, topic, platform, additional_context,
status, image_status, result, images, error_message,
started_at, completed_at, updated_at`

func (r *JobRepo) Create(ctx context.Context, qx repository.Tx, job *model.CrewJob) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	images, err := json.Marshal(job.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	const q = `
INSERT INTO crew_jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`
	_, err = ex.Exec(ctx, q,
		job.ID, job.UserID, nullable(job.ConversationID), job.Topic, job.Platform, job.AdditionalContext,
		job.Status, job.ImageStatus, job.Result, images, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Transition is the compare-and-set at the heart of the state machine: the
// UPDATE matches only while the row still carries one of the expected prior
// statuses, so among racing transitions exactly one touches the row.
func (r *JobRepo) Transition(ctx context.Context, qx repository.Tx, jobID string, from []model.JobStatus, to model.JobStatus, patch *repository.JobPatch) (*model.CrewJob, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}

	var (
		result       *string
		errorMessage *string
		completedAt  *time.Time
		images       []byte
	)
	if patch != nil {
		result = patch.Result
		errorMessage = patch.ErrorMessage
		completedAt = patch.CompletedAt
		if patch.Images != nil {
			if images, err = json.Marshal(patch.Images); err != nil {
				return nil, fmt.Errorf("encode images: %w", err)
			}
		}
	}
	fromSet := make([]string, 0, len(from))
	for _, s := range from {
		fromSet = append(fromSet, string(s))
	}

	const q = `
UPDATE crew_jobs SET
  status        = $3,
  result        = COALESCE($4, result),
  images        = COALESCE($5, images),
  error_message = COALESCE($6, error_message),
  completed_at  = COALESCE($7, completed_at),
  updated_at    = now()
WHERE job_id = $1 AND status = ANY($2)
RETURNING ` + jobColumns + `;`

	row := ex.QueryRow(ctx, q, jobID, fromSet, string(to), result, images, errorMessage, completedAt)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row matched: unknown job vs. rejected transition.
	var exists bool
	if err := ex.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM crew_jobs WHERE job_id=$1)`, jobID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrInvalidTransition
}

func (r *JobRepo) SetImageStatus(ctx context.Context, qx repository.Tx, jobID string, status model.ImageStatus, images []model.MediaRef) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	var encoded []byte
	if images != nil {
		if encoded, err = json.Marshal(images); err != nil {
			return fmt.Errorf("encode images: %w", err)
		}
	}
	const q = `
UPDATE crew_jobs SET
  image_status = $2,
  images       = CASE WHEN $3::jsonb IS NULL THEN images ELSE images || $3::jsonb END,
  updated_at   = now()
WHERE job_id = $1;`
	tag, err := ex.Exec(ctx, q, jobID, string(status), encoded)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepo) FindByID(ctx context.Context, qx repository.Tx, jobID, userID string) (*model.CrewJob, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT ` + jobColumns + ` FROM crew_jobs WHERE job_id=$1 AND user_id=$2;`
	job, err := scanJob(ex.QueryRow(ctx, q, jobID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (r *JobRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string, offset, limit int) ([]*model.CrewJob, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT ` + jobColumns + ` FROM crew_jobs
WHERE user_id=$1
ORDER BY started_at DESC
OFFSET $2 LIMIT $3;`
	rows, err := ex.Query(ctx, q, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.CrewJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.CrewJob, error) {
	var (
		j      model.CrewJob
		convID *string
		images []byte
		status string
		imgSt  string
	)
	err := row.Scan(
		&j.ID, &j.UserID, &convID, &j.Topic, &j.Platform, &j.AdditionalContext,
		&status, &imgSt, &j.Result, &images, &j.ErrorMessage,
		&j.StartedAt, &j.CompletedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if convID != nil {
		j.ConversationID = *convID
	}
	j.Status = model.JobStatus(status)
	j.ImageStatus = model.ImageStatus(imgSt)
	if len(images) > 0 {
		if err := json.Unmarshal(images, &j.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	return &j, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
