// Package errors provides error construction helpers that tag every error
// with the file and line where it was raised, which is usually all the
// context these sample programs need.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// New formats a new error prefixed with the caller's file and line.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", callSite(), fmt.Sprintf(format, a...))
}

// Wrapf annotates err with a message and the caller's file and line. The
// original error stays reachable through errors.Is / errors.As via %w.
// Returns nil when err is nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", callSite(), fmt.Sprintf(format, a...), err)
}

func callSite() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
