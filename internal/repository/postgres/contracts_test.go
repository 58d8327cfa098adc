package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/domain/member"
	"github.com/circdesk/backend/internal/domain/report"
	"github.com/circdesk/backend/internal/domain/staff"
	"github.com/circdesk/backend/internal/jobs"
)

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)

	_ loan.Store                    = (*CirculationStore)(nil)
	_ loan.Tx                       = txRepositories{}
	_ loan.Repository               = (*LoanRepository)(nil)
	_ loan.AuditRepository          = (*AuditRepository)(nil)
	_ member.Repository             = (*MemberRepository)(nil)
	_ staff.Repository              = (*StaffRepository)(nil)
	_ staff.CredentialsRepository   = (*StaffRepository)(nil)
	_ catalog.CopyRepository        = (*CopyRepository)(nil)
	_ report.Repository             = (*ReportRepository)(nil)
	_ jobs.OutboxRepository         = (*OutboxRepository)(nil)
	_ jobs.Enqueuer                 = (*OutboxRepository)(nil)
	_ jobs.NoticeRepository         = (*NoticeRepository)(nil)
	_ jobs.SweepRepository          = (*NoticeRepository)(nil)
)
