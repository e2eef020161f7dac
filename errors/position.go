package errors

import "errors"

// WithPosition decorates the error with the 1-based byte offset into the
// originating query string that the backend's ErrorResponse located the
// error at (the P field in the error field tags).
func WithPosition(err error, position int32) error {
	if err == nil {
		return nil
	}

	return &withPosition{cause: err, position: position}
}

// GetPosition returns the Postgres error position inside the given error. If
// no position has been set, 0 is returned.
func GetPosition(err error) int32 {
	if p, ok := err.(*withPosition); ok {
		return p.position
	}

	if n := errors.Unwrap(err); n != nil {
		return GetPosition(n)
	}

	return 0
}

type withPosition struct {
	cause    error
	position int32
}

func (w *withPosition) Error() string { return w.cause.Error() }
func (w *withPosition) Unwrap() error { return w.cause }
