package match

import "errors"

// Typed failure taxonomy for match operations. Everything here is recovered
// at the operation boundary and returned to the caller; none of it crashes
// the serving process.
var (
	// ErrUnauthorized means the requester is not the match owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMatchNotFound means the match does not exist or is not visible
	// to the requester.
	ErrMatchNotFound = errors.New("match not found")

	// ErrInvalidTransition means the target phase is not the immediate
	// successor of the current phase.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPhaseViolation means the operation is not legal in the match's
	// current phase.
	ErrPhaseViolation = errors.New("phase violation")

	// ErrPreconditionNotMet means a required upstream step is missing.
	ErrPreconditionNotMet = errors.New("precondition not met")

	// ErrOutOfRange means the decision window index is outside [1, N].
	ErrOutOfRange = errors.New("window index out of range")

	// ErrDuplicateWindow means the window index was already recorded.
	ErrDuplicateWindow = errors.New("duplicate window")

	// ErrOutOfSequence means a war room round was requested out of order.
	ErrOutOfSequence = errors.New("round out of sequence")

	// ErrSessionExists means the match already has an open live session.
	ErrSessionExists = errors.New("live session already exists")

	// ErrSessionNotFound means the live session is closed or unknown.
	ErrSessionNotFound = errors.New("live session not found")
)
