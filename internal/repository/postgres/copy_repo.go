package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/circdesk/backend/internal/domain/catalog"
)

type CopyRepository struct {
	db DBTX
}

func NewCopyRepository(db DBTX) *CopyRepository {
	return &CopyRepository{db: db}
}

func (r *CopyRepository) GetByKey(ctx context.Context, key catalog.CopyKey) (*catalog.Copy, error) {
	q := `SELECT isbn, copy_id, status, location FROM copies WHERE isbn = $1 AND copy_id = $2`
	out := &catalog.Copy{}
	var status string
	if err := r.db.QueryRow(ctx, q, key.ISBN, key.CopyID).
		Scan(&out.Key.ISBN, &out.Key.CopyID, &status, &out.Location); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	out.Status = catalog.CopyStatus(status)
	return out, nil
}

// TransitionStatus only updates the row while it still holds the expected
// status, so two concurrent checkouts cannot both claim the copy.
func (r *CopyRepository) TransitionStatus(ctx context.Context, key catalog.CopyKey, from, to catalog.CopyStatus) (bool, error) {
	q := `UPDATE copies SET status = $4 WHERE isbn = $1 AND copy_id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, q, key.ISBN, key.CopyID, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
