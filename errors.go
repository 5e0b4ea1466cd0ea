package ligament

import (
	"errors"

	"github.com/akmonengine/ligament/constraint"
	"github.com/akmonengine/ligament/solver"
)

var (
	ErrStaleHandle  = errors.New("ligament: stale body handle")
	ErrUnknownJoint = errors.New("ligament: joint not in world")
	ErrUnknownName  = errors.New("ligament: unknown scene name")
	ErrUnknownShape = errors.New("ligament: unknown shape")

	ErrUnknownJointKind   = constraint.ErrUnknownKind
	ErrInvalidJointBodies = constraint.ErrInvalidBodies
	ErrUnsupported        = solver.ErrUnsupported
)
