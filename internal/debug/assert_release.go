//go:build !ligament_debug

package debug

const Enabled = false

// Assert is a no-op outside debug builds; callers clamp their input instead.
func Assert(cond bool, format string, args ...any) {}
