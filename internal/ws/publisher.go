package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/circdesk/backend/internal/domain/loan"
)

type loanEventData struct {
	loan.Entity
	State         loan.State         `json:"state"`
	OverdueStatus loan.OverdueStatus `json:"overdue_status"`
}

// Publisher forwards committed loan events to the circulation feed and to the
// borrowing member's channel.
type Publisher struct {
	hub    *Hub
	logger *slog.Logger
}

func NewPublisher(hub *Hub, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{hub: hub, logger: logger}
}

func (p *Publisher) Publish(ev loan.Event) {
	payload, err := json.Marshal(map[string]any{
		"event": ev.Type,
		"data": loanEventData{
			Entity:        ev.Loan,
			State:         ev.Loan.State(),
			OverdueStatus: loan.ClassifyOverdue(ev.Loan, loan.CivilDate(ev.OccurredAt)),
		},
		"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Error("marshal loan event", "event", ev.Type, "loan_id", ev.Loan.ID, "err", err)
		return
	}
	p.hub.Publish(ChannelCirculation, payload)
	p.hub.Publish(MemberLoansChannel(ev.Loan.MemberID), payload)
}
