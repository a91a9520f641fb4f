package service

import "errors"

// --- Error Definitions ---
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrPlanNotFound         = errors.New("no training plan found")
	ErrPlanNotReady         = errors.New("training plan is not ready yet")
	ErrPlanPending          = errors.New("a plan is already being generated")
	ErrRateLimited          = errors.New("only one plan may be generated per interval")
	ErrSessionNotFound      = errors.New("session not found in plan")
	ErrDuplicateSessionID   = errors.New("plan contains duplicate session ids")
	ErrDateMismatch         = errors.New("scheduled date does not match the session's current date")
	ErrConfirmationRequired = errors.New("week reset must be confirmed")
	ErrStorageUnavailable   = errors.New("export storage is not configured")
	ErrLogNotFound          = errors.New("no log for this session on its current date")
)
