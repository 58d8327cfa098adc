package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/circdesk/backend/internal/domain/staff"
)

type StaffRepository struct {
	db DBTX
}

func NewStaffRepository(db DBTX) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*staff.Entity, error) {
	q := `SELECT staff_id, staff_name, staff_role FROM staff WHERE staff_id = $1`
	out := &staff.Entity{}
	if err := r.db.QueryRow(ctx, q, id).Scan(&out.ID, &out.Name, &out.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (r *StaffRepository) GetPasscodeHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx, `SELECT passcode_hash FROM staff WHERE staff_id = $1`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", staff.ErrNotFound
		}
		return "", err
	}
	return hash, nil
}
