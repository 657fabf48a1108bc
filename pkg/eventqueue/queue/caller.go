package queue

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strings"
)

// skipPrefixes match function names declared in this package and in the
// hub package above it, whose frames are never an event's origin.
var skipPrefixes = func() []string {
	pkg := reflect.TypeFor[Core]().PkgPath()
	return []string{pkg + ".", path.Dir(pkg) + "."}
}()

// callerPosition returns "file:line" of the first stack frame outside the
// queue and hub packages.
func callerPosition() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if f.Function != "" && !skipped(f.Function) {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return ""
		}
	}
}

func skipped(function string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}
