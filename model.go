package ligament

import (
	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/constraint"
)

// Model groups the joints of one articulation (a robot arm, a ragdoll) and names its root body.
// The island that holds the model is traversed from Root.
type Model struct {
	Name   string
	Root   actor.BodyHandle
	Joints []constraint.Joint
}

func NewModel(name string, root actor.BodyHandle, joints ...constraint.Joint) *Model {
	return &Model{Name: name, Root: root, Joints: joints}
}

// Effectors returns the effector joints of the model
func (m *Model) Effectors() []constraint.Joint {
	var effectors []constraint.Joint
	for _, joint := range m.Joints {
		if joint.Base().Kind().IsEffector() {
			effectors = append(effectors, joint)
		}
	}
	return effectors
}

// SetIkMode switches every articulation joint of the model, gears and effectors excepted,
// to motors driven by the inverse dynamics pass.
func (m *Model) SetIkMode(enabled bool, maxTorque float64) {
	for _, joint := range m.Joints {
		base := joint.Base()
		if base.Kind().ClosesLoop() {
			continue
		}
		base.SetIkMode(enabled, maxTorque)
	}
}
