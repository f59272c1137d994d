package valuation

import "fmt"

// Error is a coded valuation failure. Every call returns a fresh copy of one of
// the sentinels below so callers can match with errors.Is and read the detail
// from Internal.
type Error struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *Error) Unwrap() error { return e.Internal }

// Is reports whether target is a sentinel with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidParameters  = &Error{Code: "INVALID_PARAMETERS", Message: "invalid parameter set"}
	ErrNonConvergent      = &Error{Code: "NON_CONVERGENT", Message: "discount rate must exceed drift"}
	ErrNoInteriorSolution = &Error{Code: "NO_INTERIOR_SOLUTION", Message: "no interior default boundary"}
	ErrAssertionFailed    = &Error{Code: "ASSERTION_FAILED", Message: "internal consistency check failed"}
)

func wrap(sentinel *Error, format string, args ...any) *Error {
	return &Error{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: fmt.Errorf(format, args...),
	}
}
