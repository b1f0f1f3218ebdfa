package services

import "fmt"

// Outcome discriminates the variants of a Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeVendorError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeVendorError:
		return "vendor_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a single vendor call: Success carries Value,
// NotFound carries nothing, VendorError carries Err. Vendor clients return it
// instead of (value, error) so callers must decide what absence means.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Err     error
	// Status is the HTTP status observed, when there was one.
	Status int
}

// Success wraps a value.
func Success[T any](value T, status int) Result[T] {
	return Result[T]{Outcome: OutcomeSuccess, Value: value, Status: status}
}

// NotFound reports the resource does not exist at the vendor.
func NotFound[T any](status int) Result[T] {
	return Result[T]{Outcome: OutcomeNotFound, Status: status}
}

// VendorError reports the vendor could not be reached or refused the call.
func VendorError[T any](err error, status int) Result[T] {
	if err == nil {
		err = ErrVendor
	}
	return Result[T]{Outcome: OutcomeVendorError, Err: err, Status: status}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Outcome == OutcomeSuccess }

// AsError converts non-success outcomes into marker-tagged errors.
func (r Result[T]) AsError() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeNotFound:
		return fmt.Errorf("%w (status %d)", ErrNotFound, r.Status)
	default:
		if r.Err != nil {
			return fmt.Errorf("%w: %w", ErrVendor, r.Err)
		}
		return ErrVendor
	}
}
