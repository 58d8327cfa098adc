package loan

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/member"
	"github.com/circdesk/backend/internal/domain/staff"
)

type CopyLookup interface {
	GetByKey(ctx context.Context, key catalog.CopyKey) (*catalog.Copy, error)
}

type Resolved struct {
	Member member.Entity
	Copy   catalog.Copy
	Staff  staff.Entity
}

type Validator struct {
	members member.Repository
	copies  CopyLookup
	staff   staff.Repository
}

func NewValidator(members member.Repository, copies CopyLookup, staffRepo staff.Repository) *Validator {
	return &Validator{members: members, copies: copies, staff: staffRepo}
}

// Validate resolves the member, copy and staff a loan refers to, in that
// order. Copy availability is not checked here.
func (v *Validator) Validate(ctx context.Context, memberID int64, copyKey catalog.CopyKey, staffID int64) (*Resolved, error) {
	if memberID <= 0 {
		return nil, invalid("member_id", "must be a positive integer")
	}
	if !copyKey.Valid() {
		return nil, invalid("copy", "isbn is required and copy_id must be a positive integer")
	}
	if staffID <= 0 {
		return nil, invalid("staff_id", "must be a positive integer")
	}
	copyKey.ISBN = strings.TrimSpace(copyKey.ISBN)

	m, err := v.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, &ReferenceNotFoundError{Kind: KindMember, Key: strconv.FormatInt(memberID, 10)}
		}
		return nil, storageErr("get_member", err)
	}

	c, err := v.copies.GetByKey(ctx, copyKey)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ReferenceNotFoundError{Kind: KindCopy, Key: copyKey.String()}
		}
		return nil, storageErr("get_copy", err)
	}

	s, err := v.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			return nil, &ReferenceNotFoundError{Kind: KindStaff, Key: strconv.FormatInt(staffID, 10)}
		}
		return nil, storageErr("get_staff", err)
	}

	return &Resolved{Member: *m, Copy: *c, Staff: *s}, nil
}
