package services

import "errors"

// Synchronous-path errors surfaced to the caller with a stable code by the
// handlers. Background-path failures are absorbed: the submission stays
// PENDING and the cause is logged.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user is deactivated")
	ErrBanned          = errors.New("user is banned")
	ErrMissingHandle   = errors.New("social handle required for automated verification")
	ErrNotJoined       = errors.New("campaign participation not approved")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubTaskNotFound = errors.New("subtask not found")
	ErrInvalidEvidence = errors.New("evidence does not match the task proof type")

	// ErrDuplicateSubmission: a submission already exists for this
	// (user, task, subtask). Reported as 409, never retried.
	ErrDuplicateSubmission = errors.New("submission already exists")

	// ErrVerificationUnavailable: provider/network failure or a response
	// shape we do not recognize. The submission is left PENDING for manual
	// follow-up; it is never approved implicitly.
	ErrVerificationUnavailable = errors.New("verification provider unavailable")

	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidVerdict     = errors.New("verdict must be APPROVED or REJECTED")
)
