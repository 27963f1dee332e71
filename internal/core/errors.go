package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRejected means the remote service refused the credentials. Retrying with the same ones is pointless.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrSecondFactorFailed means the TOTP code was not accepted. It is safe to retry in the next 30s window.
	ErrSecondFactorFailed = errors.New("second factor verification failed")

	// ErrUnauthorized means the session is no longer accepted and must be acquired again.
	ErrUnauthorized = errors.New("session unauthorized")

	// ErrTransient is matched by every TransientError.
	ErrTransient = errors.New("transient network failure")

	// ErrMalformedRecord means a remote record lacked a required field.
	ErrMalformedRecord = errors.New("malformed remote record")

	// ErrStoreWrite means the log store could not persist an entry.
	ErrStoreWrite = errors.New("log store write failed")

	ErrNotFound = errors.New("not found")
)

// TransientError wraps a failure that may go away on its own (timeouts, 5xx, rate limits, resets).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// Kind classifies errors for retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthRejected
	KindSecondFactorFailed
	KindUnauthorized
	KindTransient
	KindMalformedRecord
	KindStoreWrite
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthRejected:
		return "auth_rejected"
	case KindSecondFactorFailed:
		return "second_factor_failed"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransient:
		return "transient"
	case KindMalformedRecord:
		return "malformed_record"
	case KindStoreWrite:
		return "store_write"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAuthRejected):
		return KindAuthRejected
	case errors.Is(err, ErrSecondFactorFailed):
		return KindSecondFactorFailed
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrStoreWrite):
		return KindStoreWrite
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindUnknown
}
