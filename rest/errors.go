package rest

import "errors"

// Exported so the root package can compare against them with
// errors.Is without this package importing root.
var (
	ErrInvalidToken = errors.New("rest: invalid token")
	ErrRateLimited  = errors.New("rest: rate limited by discord")
	ErrBadVerb      = errors.New("rest: unsupported http verb")
	ErrBadResource  = errors.New("rest: resource must start with /")

	// ErrLocalRateLimit is returned when the client-side burst guard
	// (spec.md §4.C guard 2) refuses a call before any request is sent.
	ErrLocalRateLimit = errors.New("rest: local rate limit exceeded")
)
