package upstream

import "errors"

// Error taxonomy for the upstream search. The request entry maps these
// to client-facing statuses with errors.Is.
var (
	// ErrCircuitOpen is returned without any network I/O while the
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("semantic scholar circuit breaker is open")

	// ErrRateLimited covers HTTP 429 and 5xx responses from upstream.
	ErrRateLimited = errors.New("semantic scholar is rate limiting requests")

	// ErrRequestFailed covers every other upstream failure: non-2xx
	// statuses, network errors, timeouts, and malformed JSON.
	ErrRequestFailed = errors.New("semantic scholar request failed")
)
