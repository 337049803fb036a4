package oversqlite

import (
	"errors"
	"fmt"
)

// Sentinel errors the engine surfaces from its public operations.
// Callers dispatch on these with errors.Is/errors.As rather than string matching,
// following internal/storage/sqlite's wrapDBError convention from the host project.
var (
	// ErrTransport wraps a network failure (DNS, connection refused, timeout).
	// Retryable: no local state has been mutated.
	ErrTransport = errors.New("oversqlite: transport error")

	// ErrAuth wraps a transport-level credential failure (expired/invalid token).
	// Engine state is left untouched; callers should refresh credentials and retry.
	ErrAuth = errors.New("oversqlite: auth error")

	// ErrProtocol wraps a malformed or length-mismatched server response.
	// The engine aborts the operation without mutating state.
	ErrProtocol = errors.New("oversqlite: protocol error")

	// ErrSchema indicates a declared sync table is missing or ill-formed at bootstrap.
	ErrSchema = errors.New("oversqlite: schema error")

	// ErrIntegrity indicates a failed write of a business row during
	// materialisation. It is not counted in any summary: DownloadOnce logs and
	// skips the record when AdvanceCursorOnMaterializeError is set and returns
	// the error otherwise; UploadOnce and Hydrate return it, rolling back the
	// operation's transaction.
	ErrIntegrity = errors.New("oversqlite: integrity error")

	// ErrResolver indicates the user-supplied merge function returned an error.
	// The engine falls back to KeepLocal(local_payload). UploadOnce records the
	// error's message as UploadSummary.FirstErrorMessage when no earlier error
	// is recorded; DownloadOnce has no summary and does not record it.
	ErrResolver = errors.New("oversqlite: resolver error")

	// ErrCancelled indicates the operation was cancelled at a suspension point.
	ErrCancelled = errors.New("oversqlite: cancelled")
)

// wrapf wraps err with an operation description and a sentinel, following
// the host's wrapDBErrorf(err, format, args...) idiom.
func wrapf(sentinel error, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	op := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w: %w", op, sentinel, err)
}
