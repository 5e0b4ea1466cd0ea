//go:build ligament_debug

package debug

import "fmt"

// Enabled reports whether invariant checks halt the program.
const Enabled = true

// Assert panics when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("ligament: assertion failed: "+format, args...))
	}
}
