// Package errors provides error constructors that record the caller's
// file and line, making provider and store failures traceable in logs
// without full stack traces.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// New creates an error annotated with the caller's file and line.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (plus the caller's file and line) to an existing
// error. If err is nil, Wrapf returns nil so call sites can wrap
// unconditionally.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
