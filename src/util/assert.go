// assert.go provides the internal-invariant-violation mechanism used by the
// lowering and allocation stages. These are compiler bugs, not user errors:
// they panic with file/line metadata and are recovered once at the CLI
// boundary (see cmd/compiler).

package util

import (
	"fmt"
	"runtime"
)

// InternalError is raised by Assert when an invariant the lowering or
// allocation passes rely on does not hold. It is never expected to surface
// to a well-formed program; recovering it at the top level turns it into a
// nonzero exit with a diagnostic line.
type InternalError struct {
	Msg  string
	File string
	Line int
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at %s:%d: %s", e.File, e.Line, e.Msg)
}

// Assert panics with an *InternalError if cond is false. The error carries
// the file and line of Assert's direct caller.
func Assert(cond bool, msg string) {
	if cond {
		return
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	panic(&InternalError{Msg: msg, File: file, Line: line})
}

// Fail unconditionally raises an internal error with msg.
func Fail(msg string) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	panic(&InternalError{Msg: msg, File: file, Line: line})
}

// Recover should be deferred once at the top of main. It turns a panicking
// *InternalError into a returned error, and re-panics anything else.
func Recover(err *error) {
	if r := recover(); r != nil {
		if ie, ok := r.(*InternalError); ok {
			*err = ie
			return
		}
		panic(r)
	}
}
