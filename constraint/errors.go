package constraint

import "errors"

var (
	ErrUnknownKind   = errors.New("ligament: unknown joint kind")
	ErrInvalidBodies = errors.New("ligament: invalid joint bodies")
)
