package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session is unknown or was discarded.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrSessionEnded is returned when input arrives after the last round resolved.
	ErrSessionEnded = errors.New("game session already ended")
	// ErrUnknownMode indicates a game mode that has no descriptor.
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrCatalogUnavailable wraps network, timeout and malformed-response failures from the movie provider.
	ErrCatalogUnavailable = errors.New("movie catalog unavailable")
	// ErrInsufficientCandidates is returned when filtering leaves fewer items than requested.
	ErrInsufficientCandidates = errors.New("not enough movies match the filters")
	// ErrInvalidInput flags malformed requests (bad filters, empty guesses, out of range picks).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when signing up with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnauthorized means the caller has no valid session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is the generic miss for profiles, scores and accounts.
	ErrNotFound = errors.New("not found")
)
