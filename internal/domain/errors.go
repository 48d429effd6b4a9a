package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. check-out date not after check-in date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrExpired is returned when a pre-registration token is redeemed after its
// expires_at instant. Handlers should map this to HTTP 410 Gone.
var ErrExpired = errors.New("expired")

// ErrAlreadyUsed is returned when a pre-registration token is redeemed a
// second time. Exactly one of two concurrent redemptions receives this.
// Handlers should map this to HTTP 409 Conflict.
var ErrAlreadyUsed = errors.New("already used")

// ErrConflict is returned when stored data is ambiguous — two reservations
// occupying today, or a feed event disagreeing with a stored record under the
// same reservation code. Conflicts are surfaced for a human decision, never
// auto-resolved. Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")
