package member

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("member_not_found")

type Entity struct {
	ID                  int64      `json:"member_id"`
	Name                string     `json:"name"`
	Address             string     `json:"address"`
	ExpirationDate      *time.Time `json:"expiration_date,omitempty"`
	Active              bool       `json:"active"`
	ProfessorPrivileges bool       `json:"professor_privileges"`
}

// Privileged reports whether the member borrows on the extended loan period.
func (e Entity) Privileged() bool {
	return e.ProfessorPrivileges
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Entity, error)
}
