package errors

import (
	"fmt"
	"runtime/debug"
)

type panicError struct {
	err   error
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *panicError) Unwrap() error {
	return e.err
}

// IsFatal marks recovered panics as non-retryable for pkg/retry.
func (e *panicError) IsFatal() bool {
	return true
}

func (e *panicError) Stack() string {
	return e.stack
}

// RecoverPanic converts a recovered panic value into an error carrying the
// stack trace. Panics are always fatal.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("%v", v)
	}

	return &panicError{
		err:   err,
		stack: string(debug.Stack()),
	}
}
