package library

import "errors"

var (
	// ErrBookNotFound means the referenced book does not exist.
	ErrBookNotFound = errors.New("book does not exist")

	// ErrMemberNotFound means the referenced member does not exist.
	ErrMemberNotFound = errors.New("member does not exist")

	// ErrLoanNotFound means the referenced loan does not exist.
	ErrLoanNotFound = errors.New("loan does not exist")

	// ErrBookUnavailable means every copy of the book is currently lent out.
	ErrBookUnavailable = errors.New("book not available")

	// ErrConcurrencyConflict means the store's write lock could not be
	// acquired or the commit lost a race. Safe to retry the whole operation.
	ErrConcurrencyConflict = errors.New("concurrency conflict, operation can be retried")

	// ErrValidation means the input was malformed or referenced an unknown member.
	ErrValidation = errors.New("invalid input")
)

// IsRetryable reports whether the operation that produced err can be
// re-executed from the start. Only concurrency conflicts qualify; every
// other failure is permanent.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
