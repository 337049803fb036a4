// Package transport implements the HTTP client the sync engine uses to talk
// to the server's upload/download/snapshot endpoints (§6).
package transport

import "errors"

// Sentinel kinds a Client's methods wrap their errors with, so the engine
// can classify failures without parsing status codes itself.
var (
	// ErrAuth marks an HTTP 401 / unauthorized response.
	ErrAuth = errors.New("transport: unauthorized")

	// ErrProtocol marks a response the client could not decode, or a
	// verdict/change array whose shape violates the wire contract.
	ErrProtocol = errors.New("transport: protocol violation")

	// ErrNetwork marks a retryable failure: connection refused, DNS,
	// timeout, or a 5xx response.
	ErrNetwork = errors.New("transport: network error")

	// ErrCancelled marks a request abandoned because its context was
	// cancelled or hit its deadline, not a server or network failure.
	ErrCancelled = errors.New("transport: request cancelled")
)

// IsAuthError reports whether err (or a wrapped cause) is an auth failure.
func IsAuthError(err error) bool { return errors.Is(err, ErrAuth) }

// IsProtocolError reports whether err (or a wrapped cause) is a protocol
// violation.
func IsProtocolError(err error) bool { return errors.Is(err, ErrProtocol) }

// IsCancelledError reports whether err (or a wrapped cause) is a context
// cancellation rather than a transport failure.
func IsCancelledError(err error) bool { return errors.Is(err, ErrCancelled) }
