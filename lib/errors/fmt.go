package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorfOrNil wraps e with a formatted prefix, keeping nil as nil.
func ErrorfOrNil(e error, format string, args ...any) error {
	if e == nil {
		return nil
	}
	if len(format) == 0 {
		return e
	}
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", e)
}

// Join collects shutdown and cleanup errors, skipping nils.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
