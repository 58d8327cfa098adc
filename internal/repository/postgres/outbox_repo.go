package postgres

import (
	"context"
	"time"

	"github.com/circdesk/backend/internal/jobs"
)

// staleProcessingAfter releases jobs whose worker died mid-run.
const staleProcessingAfter = 5 * time.Minute

type OutboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, topic string, payload []byte) error {
	q := `INSERT INTO outbox_jobs (topic, payload, status) VALUES ($1, $2::jsonb, 'pending')`
	_, err := r.db.Exec(ctx, q, topic, string(payload))
	return err
}

func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int32) ([]jobs.OutboxJob, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
UPDATE outbox_jobs
SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
WHERE id IN (
  SELECT id FROM outbox_jobs
  WHERE (status = 'pending' AND available_at <= NOW())
     OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $2))
  ORDER BY id
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
RETURNING id, topic, payload::text, status, attempts, last_error, available_at
`
	rows, err := r.db.Query(ctx, q, limit, staleProcessingAfter.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]jobs.OutboxJob, 0)
	for rows.Next() {
		var job jobs.OutboxJob
		var payload string
		if err := rows.Scan(&job.ID, &job.Topic, &payload, &job.Status, &job.Attempts, &job.LastError, &job.AvailableAt); err != nil {
			return nil, err
		}
		job.Payload = []byte(payload)
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepository) MarkDone(ctx context.Context, jobID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_jobs SET status = 'done', last_error = '', updated_at = NOW() WHERE id = $1`, jobID)
	return err
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	q := `
UPDATE outbox_jobs
SET status = 'pending', available_at = $2, last_error = $3, updated_at = NOW()
WHERE id = $1
`
	_, err := r.db.Exec(ctx, q, jobID, nextAvailableAt, lastError)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, jobID int64, lastError string) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_jobs SET status = 'failed', last_error = $2, updated_at = NOW() WHERE id = $1`, jobID, lastError)
	return err
}
