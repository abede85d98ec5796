package core

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("release has been modified in the meantime")
	ErrNotPending   = errors.New("release is not pending approval")
	ErrNotDeletable = errors.New("releases in this stage can't be deleted")
	ErrInvalidDates = errors.New("end date must be after the start date")
	ErrEmptyName    = errors.New("name can't be empty")
	ErrNameTaken    = errors.New("name already exists")

	ErrEmptyComment    = errors.New("comment can't be empty")
	ErrBlackoutStarted = errors.New("active or expired blackouts can't be deleted")

	// ErrInvalidApprover is returned if an approver group to be stored refers to a role or team which is not in the tenant.
	ErrInvalidApprover = errors.New("approver group refers to an unknown role or team")

	// ErrApproverIntegrity is returned if a stored approver group refers to a role or team which does not exist anymore.
	ErrApproverIntegrity = errors.New("stored approver group refers to a missing role or team")
)

// A BlackoutError is returned if a release overlaps with one or more blackouts in its environments.
type BlackoutError struct {
	Names []string
}

func (e *BlackoutError) Error() string {
	return "the provided dates fall within blackout period(s): " + strings.Join(e.Names, ", ")
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
