package loan

import (
	"errors"
	"fmt"
)

var (
	ErrReferenceNotFound = errors.New("reference_not_found")
	ErrDuplicateLoan     = errors.New("duplicate_loan")
	ErrLoanNotFound      = errors.New("loan_not_found")
	ErrCopyUnavailable   = errors.New("copy_unavailable")
	ErrInvalidInput      = errors.New("invalid_loan_input")
	ErrStorage           = errors.New("storage_error")
)

type EntityKind string

const (
	KindMember EntityKind = "member"
	KindCopy   EntityKind = "copy"
	KindStaff  EntityKind = "staff"
)

// ReferenceNotFoundError reports a member, copy or staff key that did not
// resolve while validating a loan.
type ReferenceNotFoundError struct {
	Kind EntityKind
	Key  string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrReferenceNotFound, e.Kind, e.Key)
}

func (e *ReferenceNotFoundError) Is(target error) bool {
	return target == ErrReferenceNotFound
}

type DuplicateLoanError struct {
	ID int64
}

func (e *DuplicateLoanError) Error() string {
	return fmt.Sprintf("%s: %d", ErrDuplicateLoan, e.ID)
}

func (e *DuplicateLoanError) Is(target error) bool {
	return target == ErrDuplicateLoan
}

type LoanNotFoundError struct {
	ID int64
}

func (e *LoanNotFoundError) Error() string {
	return fmt.Sprintf("%s: %d", ErrLoanNotFound, e.ID)
}

func (e *LoanNotFoundError) Is(target error) bool {
	return target == ErrLoanNotFound
}

type CopyUnavailableError struct {
	Key    string
	Status string
}

func (e *CopyUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s is %q", ErrCopyUnavailable, e.Key, e.Status)
}

func (e *CopyUnavailableError) Is(target error) bool {
	return target == ErrCopyUnavailable
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StorageError wraps a failure coming from the entity store. The cause is
// kept so callers can still inspect it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
