package cmn

import "fmt"

// Assert panics if cond is false. Used at invariant boundaries the
// same way the teacher's cmn.Assert guards impossible states: a
// triggered Assert means a bug in this process, not bad input.
func Assert(cond bool) {
	if !cond {
		panic("assertion failed")
	}
}

// AssertMsg is Assert with a caller-supplied message for context.
func AssertMsg(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}

// AssertFmt is AssertMsg with printf-style formatting of extra args.
func AssertFmt(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic("assertion failed: " + msg + ": " + fmt.Sprint(args...))
	}
}

// AssertNoErr panics if err is non-nil. Reserved for errors that
// indicate a programming mistake rather than an environmental failure
// (e.g. marshaling a struct this process just built).
func AssertNoErr(err error) {
	if err != nil {
		panic("assertion failed: unexpected error: " + err.Error())
	}
}
