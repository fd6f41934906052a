package engine

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvariantViolation marks errors raised when an iterator detects that
	// the index does not have the shape a query relies on. Searcher.Search
	// turns panics carrying such an error into a returned error.
	ErrInvariantViolation = errors.New("index invariant violated")

	// ErrSearchAborted marks errors raised by a collector that stops a search
	// early, such as a LimitingCollector running out of time.
	ErrSearchAborted = errors.New("search aborted")

	ErrUnsupportedSortType = errors.New("unsupported sort field type")
	ErrNilQuery            = errors.New("query must not be nil")
)

// InvariantViolation builds the error an iterator panics with when it
// detects a broken index invariant. cause is the specific sentinel.
func InvariantViolation(cause error, format string, args ...any) error {
	err := errors.AssertionFailedf(format, args...)
	err = errors.Mark(err, cause)
	return errors.Mark(err, ErrInvariantViolation)
}

// recoverSearchPanic converts a recovered panic into an error when it carries
// an invariant violation or an abort. Anything else is re-raised.
func recoverSearchPanic(r any) error {
	err, ok := r.(error)
	if !ok {
		panic(r)
	}
	if errors.Is(err, ErrInvariantViolation) || errors.Is(err, ErrSearchAborted) {
		return err
	}
	panic(r)
}
