package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/notice"
)

const OverdueNoticeTopic = "overdue_notice"

// ErrNoticeNotDue is returned by NoticeRepository when the loan was returned,
// deleted or is no longer past due by the time the job runs.
var ErrNoticeNotDue = errors.New("notice_not_due")

type OutboxJob struct {
	ID          int64
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int32
	LastError   string
	AvailableAt time.Time
}

type OutboxRepository interface {
	// ClaimPending returns due jobs with Attempts already counting this run.
	ClaimPending(ctx context.Context, limit int32) ([]OutboxJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

type NoticeRepository interface {
	GetNotice(ctx context.Context, loanID int64, asOf time.Time) (*notice.Notice, error)
	MarkNoticeSent(ctx context.Context, loanID int64) error
}

type NoticeWorker struct {
	outboxRepo   OutboxRepository
	noticeRepo   NoticeRepository
	sender       notice.Sender
	logger       *slog.Logger
	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
}

func NewNoticeWorker(outboxRepo OutboxRepository, noticeRepo NoticeRepository, sender notice.Sender, logger *slog.Logger) *NoticeWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoticeWorker{
		outboxRepo:  outboxRepo,
		noticeRepo:  noticeRepo,
		sender:      sender,
		logger:      logger,
		maxAttempts: 5,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*15) * time.Second
		},
	}
}

func (w *NoticeWorker) RunOnce(ctx context.Context, batchSize int32) error {
	jobs, err := w.outboxRepo.ClaimPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			return err
		}
	}

	return nil
}

func (w *NoticeWorker) processJob(ctx context.Context, job OutboxJob) error {
	switch job.Topic {
	case OverdueNoticeTopic:
		return w.processOverdueNotice(ctx, job)
	default:
		if job.Attempts >= w.maxAttempts {
			return w.outboxRepo.MarkFailed(ctx, job.ID, "unsupported_topic")
		}
		next := w.now().Add(w.retryBackoff(job.Attempts))
		return w.outboxRepo.MarkRetry(ctx, job.ID, next, "unsupported_topic")
	}
}

type OverdueNoticePayload struct {
	LoanID int64 `json:"loan_id"`
}

func (w *NoticeWorker) processOverdueNotice(ctx context.Context, job OutboxJob) error {
	var payload OverdueNoticePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return w.handleJobError(ctx, job, fmt.Errorf("invalid_payload"))
	}
	if payload.LoanID <= 0 {
		return w.handleJobError(ctx, job, errors.New("missing_loan_id"))
	}

	n, err := w.noticeRepo.GetNotice(ctx, payload.LoanID, loan.CivilDate(w.now()))
	if err != nil {
		if errors.Is(err, ErrNoticeNotDue) {
			w.logger.Info("overdue notice skipped", "job_id", job.ID, "loan_id", payload.LoanID)
			return w.outboxRepo.MarkDone(ctx, job.ID)
		}
		return w.handleJobError(ctx, job, err)
	}

	if err := w.sender.Send(ctx, *n); err != nil {
		return w.handleJobError(ctx, job, err)
	}

	if err := w.noticeRepo.MarkNoticeSent(ctx, payload.LoanID); err != nil {
		return w.handleJobError(ctx, job, err)
	}

	return w.outboxRepo.MarkDone(ctx, job.ID)
}

func (w *NoticeWorker) handleJobError(ctx context.Context, job OutboxJob, err error) error {
	msg := err.Error()
	if job.Attempts >= w.maxAttempts {
		w.logger.Error("outbox job failed", "job_id", job.ID, "topic", job.Topic, "attempts", job.Attempts, "err", err)
		return w.outboxRepo.MarkFailed(ctx, job.ID, msg)
	}
	next := w.now().Add(w.retryBackoff(job.Attempts))
	w.logger.Warn("outbox job retry scheduled", "job_id", job.ID, "topic", job.Topic, "attempts", job.Attempts, "next", next, "err", err)
	return w.outboxRepo.MarkRetry(ctx, job.ID, next, msg)
}
