package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/circdesk/backend/internal/domain/member"
)

type MemberRepository struct {
	db DBTX
}

func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*member.Entity, error) {
	q := `
SELECT member_id, name, address, expiration_date, active_flag, professor_privileges
FROM members WHERE member_id = $1
`
	out := &member.Entity{}
	err := r.db.QueryRow(ctx, q, id).
		Scan(&out.ID, &out.Name, &out.Address, &out.ExpirationDate, &out.Active, &out.ProfessorPrivileges)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}
