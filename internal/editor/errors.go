package editor

import "fmt"

// ErrorKind classifies editor operation failures. None of them are
// fatal: validation and structural errors reject the operation before
// any mutation, sync errors roll the mutation back.
type ErrorKind int

const (
	// KindValidation rejects an operation whose preconditions are not
	// met (nothing selected, no diagram loaded, and so on).
	KindValidation ErrorKind = iota
	// KindStructural rejects an operation that would violate point
	// topology (protected endpoint, glue within one object).
	KindStructural
	// KindSync marks a remote persistence failure after rollback.
	KindSync
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStructural:
		return "structural"
	case KindSync:
		return "sync"
	default:
		return "unknown"
	}
}

// OpError is an editor operation failure with its kind. The message is
// human-readable and safe to surface as status text.
type OpError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *OpError) Unwrap() error { return e.Err }

func validationErr(format string, args ...any) error {
	return &OpError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func structuralErr(err error, format string, args ...any) error {
	return &OpError{Kind: KindStructural, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the ErrorKind of an editor error, or ok=false for
// other errors.
func KindOf(err error) (ErrorKind, bool) {
	if opErr, ok := err.(*OpError); ok {
		return opErr.Kind, true
	}
	return 0, false
}
