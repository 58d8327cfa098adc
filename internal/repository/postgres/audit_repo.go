package postgres

import (
	"context"

	"github.com/circdesk/backend/internal/domain/loan"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, in loan.AuditEntry) error {
	q := `
INSERT INTO loan_audit_logs (staff_id, action, loan_id, payload)
VALUES (NULLIF($1::bigint, 0), $2, $3, COALESCE($4::jsonb, '{}'::jsonb))
`
	var payload any
	if len(in.Payload) > 0 {
		payload = string(in.Payload)
	}
	_, err := r.db.Exec(ctx, q, in.StaffID, in.Action, in.LoanID, payload)
	return err
}
