package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/port"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// Create inserts job. A concurrent delivery of the same message may have
// inserted first; that row is kept.
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO transcription_jobs (
			id, message_id, bucket, object_key, media_kind, model_size,
			transcript_key, summary_key, status, attempt,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (message_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.MessageID, job.Bucket, job.Key,
		string(job.MediaKind), string(job.ModelSize),
		job.TranscriptKey, job.SummaryKey, string(job.Status),
		job.Attempt, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE transcription_jobs SET
			media_kind=$2, model_size=$3, transcript_key=$4, summary_key=$5,
			status=$6, attempt=$7, error_message=$8, updated_at=$9, completed_at=$10
		WHERE message_id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.MessageID, string(job.MediaKind), string(job.ModelSize),
		job.TranscriptKey, job.SummaryKey, string(job.Status),
		job.Attempt, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByMessageID(ctx context.Context, messageID string) (*entity.Job, error) {
	query := `
		SELECT id, message_id, bucket, object_key, media_kind, model_size,
			transcript_key, summary_key, status, attempt,
			error_message, created_at, updated_at, completed_at
		FROM transcription_jobs WHERE message_id=$1`

	job := &entity.Job{}
	var kind, model, status string
	err := r.pool.QueryRow(ctx, query, messageID).Scan(
		&job.ID, &job.MessageID, &job.Bucket, &job.Key, &kind, &model,
		&job.TranscriptKey, &job.SummaryKey, &status, &job.Attempt,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find job %s: %w", messageID, port.ErrJobNotFound)
		}
		return nil, fmt.Errorf("find job by message id: %w", err)
	}
	job.MediaKind = entity.MediaKind(kind)
	job.ModelSize = entity.ModelSize(model)
	job.Status = entity.JobStatus(status)
	return job, nil
}
