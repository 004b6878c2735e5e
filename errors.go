// errors.go - descriptive errors for bfind
//
// (c) 2025- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package bfind

import (
	"errors"
	"fmt"
	"syscall"
)

// errAny returns true if the target error 'err' matches
// any in the list 'errs'; and returns false otherwise
func errAny(err error, errs ...error) bool {
	for _, e := range errs {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// isVanished says whether 'err' means the entry disappeared between
// being listed and being examined - the class of errors the
// race-ignoring policy suppresses.
func isVanished(err error) bool {
	return errAny(err, syscall.ENOENT, syscall.ENOTDIR, syscall.ESTALE)
}

// EvalError represents an error raised while evaluating the
// expression against one entry.
type EvalError struct {
	Op   string
	Path string
	Err  error
}

// Error returns a string representation of EvalError
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Op, e.Err.Error())
}

// Unwrap returns the underlying wrapped error
func (e *EvalError) Unwrap() error {
	return e.Err
}

var _ error = &EvalError{}
