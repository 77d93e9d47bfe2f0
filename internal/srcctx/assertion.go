package srcctx

import (
	"fmt"
	"runtime"
)

// AssertionError is raised when an IR-structural invariant is violated.
// Unlike a parse error it never carries a source Position (the input text
// parsed fine; a later pass broke an invariant of the in-memory graph),
// but in debug builds it does carry the Go file/line of the failing
// check.
type AssertionError struct {
	Message  string
	CheckLoc string // "<file>:<line>" of the failing Assert call, debug builds only
}

func (e AssertionError) Error() string {
	if e.CheckLoc == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (check at %s)", e.Message, e.CheckLoc)
}

// Debug controls whether Assert annotates failures with a Go source
// location. The driver leaves this on; release embedders may turn it off.
var Debug = true

// Assert panics with an AssertionError if cond is false. A violated
// invariant is a bug, not a recoverable condition, so it is never silently
// ignored or locally handled.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	loc := ""
	if Debug {
		if _, file, line, ok := runtime.Caller(1); ok {
			loc = fmt.Sprintf("%s:%d", file, line)
		}
	}
	panic(AssertionError{Message: msg, CheckLoc: loc})
}
