package models

import (
	"errors"
	"fmt"
)

// WipeConfirmationPhrase is the literal phrase a caller must supply to run an
// unconditional wipe. Passing anything else, including an empty string or a
// boolean-style flag, fails with ErrConfirmationRequired.
const WipeConfirmationPhrase = "permanently erase all folio data"

var (
	// ErrNotFound indicates the record does not exist or was hard-deleted.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a natural-key collision (slug, study id, name).
	ErrConflict = errors.New("record already exists")

	// ErrInvalidReference indicates a pathogen or project reference that does
	// not resolve to an active record.
	ErrInvalidReference = errors.New("referenced record not found")

	// ErrInvalidInput indicates a request value that fails validation, such
	// as a malformed slug or an unknown privacy setting.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPurgeBlocked indicates a purge whose selection still contains active
	// records; nothing is deleted in that case.
	ErrPurgeBlocked = errors.New("purge blocked: selection contains active records")

	// ErrConfirmationRequired indicates a destructive command invoked without
	// the exact confirmation phrase.
	ErrConfirmationRequired = errors.New("confirmation phrase missing or incorrect")

	// ErrTimeout indicates an identity provider call that exceeded its
	// per-request deadline.
	ErrTimeout = errors.New("identity provider request timed out")
)

// ProvisioningError reports an aborted authorization-provisioning saga and
// the step it failed on. Completed steps are rolled back before the error is
// returned, so the caller never observes a half-provisioned project.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed at step %q: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
