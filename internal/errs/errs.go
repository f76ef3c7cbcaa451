package errs

import "errors"

// Session gate.
var (
	ErrInvalidCredential    = errors.New("invalid credentials")
	ErrInvalidCode          = errors.New("invalid verification code")
	ErrCorruptSessionRecord = errors.New("corrupt session record")
	ErrCheckInProgress      = errors.New("verification already in progress")
	ErrNotAuthenticated     = errors.New("session is not authenticated")
)

// Support concerns.
var (
	ErrConcernNotFound      = errors.New("concern not found")
	ErrInvalidTransition    = errors.New("invalid concern transition")
	ErrConcurrentUpdate     = errors.New("concern was modified concurrently")
	ErrCloseReasonRequired  = errors.New("close reason is required")
	ErrCloseSummaryRequired = errors.New("close summary is required")
	ErrEmptyMessage         = errors.New("message content is empty")
	ErrInvalidSender        = errors.New("invalid message sender")
	ErrIncompleteIntake     = errors.New("user_id, name and email are required")
)
