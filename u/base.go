// Package u has small helpers shared by other packages
package u

import (
	"fmt"
)

// PanicIf panics if cond is true. args are an optional format and its arguments
func PanicIf(cond bool, args ...any) {
	if !cond {
		return
	}
	s := "condition failed"
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}
