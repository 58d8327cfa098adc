package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/circdesk/backend/internal/domain/loan"
)

type SweepRepository interface {
	// ListNoticeCandidates returns open loans past due as of asOf that have
	// no notice sent and no live notice job.
	ListNoticeCandidates(ctx context.Context, asOf time.Time, limit int32) ([]int64, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, topic string, payload []byte) error
}

// OverdueSweeper turns newly late loans into overdue_notice outbox jobs.
type OverdueSweeper struct {
	sweepRepo SweepRepository
	outbox    Enqueuer
	now       func() time.Time
}

func NewOverdueSweeper(sweepRepo SweepRepository, outbox Enqueuer) *OverdueSweeper {
	return &OverdueSweeper{
		sweepRepo: sweepRepo,
		outbox:    outbox,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce enqueues up to batchSize notices and reports how many it queued.
func (s *OverdueSweeper) RunOnce(ctx context.Context, batchSize int32) (int, error) {
	ids, err := s.sweepRepo.ListNoticeCandidates(ctx, loan.CivilDate(s.now()), batchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		payload, err := json.Marshal(OverdueNoticePayload{LoanID: id})
		if err != nil {
			return queued, err
		}
		if err := s.outbox.Enqueue(ctx, OverdueNoticeTopic, payload); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}
