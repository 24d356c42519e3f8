package imaging

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so callers can decide how to surface it.
type Kind int

const (
	// KindInput marks unusable input: no foreground pixels, degenerate
	// polygons, out-of-range parameters. Never retried.
	KindInput Kind = iota

	// KindLoad marks a failed fetch/read of a source image or annotation.
	// The user may retry the triggering action manually.
	KindLoad

	// KindCompute marks an unexpected internal failure.
	KindCompute
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLoad:
		return "load"
	default:
		return "compute"
	}
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNoForeground is returned when a mask source yields zero lesion pixels.
// Callers surface it as "no lesion detected" and skip the overlay.
var ErrNoForeground = errors.New("no foreground pixels in mask")

func inputErr(op string, err error) error {
	return &Error{Kind: KindInput, Op: op, Err: err}
}

func loadErr(op string, err error) error {
	return &Error{Kind: KindLoad, Op: op, Err: err}
}

func computeErr(op string, err error) error {
	return &Error{Kind: KindCompute, Op: op, Err: err}
}

// KindOf extracts the failure class from err, defaulting to KindCompute for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindCompute
}
