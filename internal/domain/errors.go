package domain

import "errors"

// Error kinds surfaced by the progression engine. Callers match them with
// errors.Is; the wrapped message carries the reason.
var (
	ErrPrecondition          = errors.New("precondition failed")
	ErrDuplicateRegistration = errors.New("player is already registered in round")
	ErrDuplicateScore        = errors.New("score already exists for player on stage")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDisplayNameExists  = errors.New("display name already exists")
	ErrNotTourneyAdmin    = errors.New("user is not an admin of this tourney")
)
