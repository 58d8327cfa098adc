package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("copy_not_found")

type CopyStatus string

const (
	StatusAvailable    CopyStatus = "Available"
	StatusNotAvailable CopyStatus = "Not Available"
)

type Book struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// CopyKey identifies one physical copy of a book.
type CopyKey struct {
	ISBN   string `json:"isbn"`
	CopyID int64  `json:"copy_id"`
}

func (k CopyKey) String() string {
	return fmt.Sprintf("%s/%d", k.ISBN, k.CopyID)
}

func (k CopyKey) Valid() bool {
	return strings.TrimSpace(k.ISBN) != "" && k.CopyID > 0
}

type Copy struct {
	Key      CopyKey    `json:"key"`
	Status   CopyStatus `json:"status"`
	Location string     `json:"location"`
}

func (c Copy) Available() bool {
	return strings.EqualFold(strings.TrimSpace(string(c.Status)), string(StatusAvailable))
}

type CopyRepository interface {
	GetByKey(ctx context.Context, key CopyKey) (*Copy, error)
	// TransitionStatus moves the copy from one status to another and reports
	// whether the copy was in the expected status.
	TransitionStatus(ctx context.Context, key CopyKey, from, to CopyStatus) (bool, error)
}
