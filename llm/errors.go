package llm

import "errors"

// Completion failures split into two classes: transient ones the retry loop
// may try again (rate limits, 5xx, network faults) and fatal ones it must
// surface immediately (auth, malformed requests).

// TransientError marks a failure worth retrying.
type TransientError struct {
	cause error
}

func (e *TransientError) Error() string { return e.cause.Error() }

func (e *TransientError) Unwrap() error { return e.cause }

// NewTransientError wraps a retryable failure.
func NewTransientError(cause error) error {
	return &TransientError{cause: cause}
}

// FatalError marks a failure that retrying cannot fix.
type FatalError struct {
	cause error
}

func (e *FatalError) Error() string { return e.cause.Error() }

func (e *FatalError) Unwrap() error { return e.cause }

// NewFatalError wraps a non-retryable failure.
func NewFatalError(cause error) error {
	return &FatalError{cause: cause}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
