package service

import "errors"

// Handlers match these with errors.Is. Collaborator failures are joined onto
// them so the cause still reaches the logs
var (
	ErrAlreadyRegistered    = errors.New("email already registered")
	ErrNotificationFailed   = errors.New("failed to send verification email")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotVerified          = errors.New("account not verified")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrBadRequest           = errors.New("bad request")
	ErrStoreUnavailable     = errors.New("store unavailable")

	ErrEmptyWorkerOutput     = errors.New("extraction worker produced no output")
	ErrMalformedWorkerOutput = errors.New("extraction worker produced malformed output")
	ErrWorkerTimeout         = errors.New("extraction worker timed out")
	ErrWorkerBusy            = errors.New("all extraction workers are busy")
	ErrWorkerUnavailable     = errors.New("extraction worker could not be started")
)
