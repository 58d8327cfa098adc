package staff

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("staff_not_found")

type Entity struct {
	ID   int64  `json:"staff_id"`
	Name string `json:"staff_name"`
	Role string `json:"staff_role"`
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Entity, error)
}

type CredentialsRepository interface {
	GetByID(ctx context.Context, id int64) (*Entity, error)
	GetPasscodeHash(ctx context.Context, id int64) (string, error)
}
