package debug

import "testing"

func TestAssert(t *testing.T) {
	defer func() {
		r := recover()
		if Enabled && r == nil {
			t.Error("Assert(false) should panic in debug builds")
		}
		if !Enabled && r != nil {
			t.Errorf("Assert(false) panicked in a release build: %v", r)
		}
	}()

	Assert(true, "never fails")
	Assert(false, "value %d", 42)
}
