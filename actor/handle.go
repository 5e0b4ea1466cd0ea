package actor

import (
	"fmt"
	"math"
)

// BodyHandle references a body slot in the world arena. The generation changes every time the
// slot is recycled, so a handle to a removed body never resolves to its successor.
type BodyHandle struct {
	Index      uint32
	Generation uint32
}

// WorldHandle attaches a joint to the static world instead of a body.
var WorldHandle = BodyHandle{Index: math.MaxUint32, Generation: math.MaxUint32}

func (h BodyHandle) IsWorld() bool {
	return h == WorldHandle
}

func (h BodyHandle) String() string {
	if h.IsWorld() {
		return "world"
	}
	return fmt.Sprintf("body#%d.%d", h.Index, h.Generation)
}
