package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. a group without a name).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned by repo functions when a versioned write lost a race
// against another writer, or when an insert hit a unique constraint.
// Services retry on it; once the retry budget is spent it reaches the handler
// as HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrAlreadyInRide is returned when a join would duplicate a rider or put the
// driver on their own roster.
var ErrAlreadyInRide = errors.New("already in ride")

// ErrNotInRide is returned when a leave is rejected for a user the roster does
// not consider a leavable participant.
var ErrNotInRide = errors.New("not in ride")

// ErrRideFull is returned by callers that gate joins on remaining capacity.
var ErrRideFull = errors.New("ride is full")

// ErrAlreadyMember is returned when a user joins a group they already belong to.
var ErrAlreadyMember = errors.New("already a member")

// ErrForbidden is returned when the caller is authenticated but not allowed to
// act on the resource (e.g. editing someone else's ride).
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized is returned when a request carries no valid identity.
var ErrUnauthorized = errors.New("unauthorized")
