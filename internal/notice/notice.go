package notice

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notice is the overdue reminder delivered to a member.
type Notice struct {
	LoanID      int64     `json:"loan_id"`
	MemberID    int64     `json:"member_id"`
	MemberName  string    `json:"member_name"`
	Address     string    `json:"address"`
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	CopyID      int64     `json:"copy_id"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

type Sender interface {
	Send(ctx context.Context, n Notice) error
}

type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notice) error {
	if n.LoanID <= 0 {
		return fmt.Errorf("missing loan id")
	}
	s.logger.Info("overdue notice",
		"loan_id", n.LoanID,
		"member_id", n.MemberID,
		"isbn", n.ISBN,
		"copy_id", n.CopyID,
		"due_date", n.DueDate.Format(time.DateOnly),
		"days_overdue", n.DaysOverdue,
	)
	return nil
}
