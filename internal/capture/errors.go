// errors.go — CaptureError and its two kinds (spec §4.1, §7).
package capture

import "errors"

// Kind classifies a capture failure so the producer loop knows whether to
// retry or fall back.
type Kind int

const (
	// Transient is a one-off flake: the caller retries once with a short
	// back-off, then counts the frame as dropped.
	Transient Kind = iota
	// Fatal means the backend itself is dead: the caller falls back to the
	// next-ranked backend, or fails the session if none remain.
	Fatal
)

func (k Kind) String() string {
	if k == Fatal {
		return "fatal"
	}
	return "transient"
}

// CaptureError wraps a backend failure with its kind and origin.
type CaptureError struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Source + ": " + e.Kind.String()
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ErrNotSupported is returned by backends that cannot enumerate windows or
// otherwise lack an optional capability.
var ErrNotSupported = errors.New("capability not supported by this backend")

// AsCaptureError unwraps err into a *CaptureError, synthesizing a Fatal
// wrapper for errors that didn't originate as one (defensive: an unexpected
// error from a third-party encoder/library should never crash the producer
// loop).
func AsCaptureError(source string, err error) *CaptureError {
	if err == nil {
		return nil
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	return &CaptureError{Kind: Fatal, Source: source, Err: err}
}
