package constraint

import (
	"fmt"
	"slices"
	"sync"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/go-gl/mathgl/mgl64"
)

// Factory builds a joint from its configuration. parent is nil for joints attached to the world.
type Factory func(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		KindHinge.String():                    newHingeFromConfig,
		KindSpherical.String():                newSphericalFromConfig,
		KindDoubleHinge.String():              newDoubleHingeFromConfig,
		KindSlider.String():                   newSliderFromConfig,
		KindRoller.String():                   newRollerFromConfig,
		KindGear.String():                     newGearFromConfig,
		KindPdActuator.String():               newPdActuatorFromConfig,
		KindIk6DofEffector.String():           newIk6DofEffectorFromConfig,
		KindIkSwivelPositionEffector.String(): newIkSwivelPositionEffectorFromConfig,
	}
)

// Register adds or replaces the factory of a joint kind
func Register(kind string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Kinds lists the registered kinds in lexical order
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// New builds a joint through the factory registered for cfg.Kind
func New(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("joint %q: %w: %q", cfg.Name, ErrUnknownKind, cfg.Kind)
	}
	if child == nil || child.IsStatic() || child == parent {
		return nil, fmt.Errorf("joint %q: %w", cfg.Name, ErrInvalidBodies)
	}
	return factory(cfg, child, parent)
}

func vec(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// pivotFrame builds the joint frame: front along Pin, up toward Up
func pivotFrame(cfg config.JointConfig) actor.Transform {
	pin := vec(cfg.Pin)
	if pin.Len() == 0 {
		pin = mgl64.Vec3{1, 0, 0}
	}
	up := vec(cfg.Up)
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	return actor.TransformFromAxes(vec(cfg.Pivot), pin, up)
}

func regularizer(cfg config.JointConfig) float64 {
	if cfg.Regularizer == 0 {
		return config.DefaultRegularizer
	}
	return cfg.Regularizer
}

func newHingeFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewHinge(pivotFrame(cfg), child, parent)
	if cfg.Limits != nil {
		j.SetLimits(cfg.Limits.Min, cfg.Limits.Max)
	}
	j.SetSpringDamper(regularizer(cfg), cfg.Spring, cfg.Damper)
	j.SetIkMode(cfg.IK, cfg.MaxTorque)
	return j, nil
}

func newSphericalFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewSpherical(pivotFrame(cfg), child, parent)
	j.SetConeLimit(cfg.ConeAngle)
	if cfg.Twist != nil {
		j.SetTwistLimits(cfg.Twist.Min, cfg.Twist.Max)
	}
	j.SetViscousFriction(cfg.Friction)
	j.SetIkMode(cfg.IK, cfg.MaxTorque)
	return j, nil
}

func newDoubleHingeFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewDoubleHinge(pivotFrame(cfg), child, parent)
	if cfg.Limits != nil {
		j.SetLimits0(cfg.Limits.Min, cfg.Limits.Max)
	}
	if cfg.Limits1 != nil {
		j.SetLimits1(cfg.Limits1.Min, cfg.Limits1.Max)
	}
	j.SetSpringDamper0(regularizer(cfg), cfg.Spring, cfg.Damper)
	j.SetSpringDamper1(regularizer(cfg), cfg.Spring, cfg.Damper)
	j.SetIkMode(cfg.IK, cfg.MaxTorque)
	return j, nil
}

func newSliderFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewSlider(pivotFrame(cfg), child, parent)
	if cfg.Position != nil {
		j.SetLimits(cfg.Position.Min, cfg.Position.Max)
	}
	j.SetSpringDamper(regularizer(cfg), cfg.Spring, cfg.Damper)
	j.SetIkMode(cfg.IK, cfg.MaxForce)
	return j, nil
}

func newRollerFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewRoller(pivotFrame(cfg), child, parent)
	if cfg.Limits != nil {
		j.SetLimitsAngle(cfg.Limits.Min, cfg.Limits.Max)
	}
	if cfg.Position != nil {
		j.SetLimitsPosit(cfg.Position.Min, cfg.Position.Max)
	}
	j.SetSpringDamperPosit(regularizer(cfg), cfg.Spring, cfg.Damper)
	j.SetIkMode(cfg.IK, cfg.MaxTorque)
	return j, nil
}

func newGearFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	if parent == nil {
		return nil, fmt.Errorf("gear %q needs two bodies: %w", cfg.Name, ErrInvalidBodies)
	}
	pin1 := vec(cfg.Pin1)
	if pin1.Len() == 0 {
		pin1 = vec(cfg.Pin)
	}
	j := NewGear(cfg.Ratio, vec(cfg.Pin), child, pin1, parent)
	j.MaxTorque = cfg.MaxTorque
	return j, nil
}

func newPdActuatorFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewPdActuator(pivotFrame(cfg), child, parent)
	if cfg.Spring > 0 || cfg.Damper > 0 {
		j.SetLinearSpringDamper(regularizer(cfg), cfg.Spring, cfg.Damper)
		j.SetAngularSpringDamper(regularizer(cfg), cfg.Spring, cfg.Damper)
	}
	if cfg.ConeAngle > 0 {
		j.SetConeLimit(cfg.ConeAngle)
	}
	if cfg.Twist != nil {
		j.SetTwistLimits(cfg.Twist.Min, cfg.Twist.Max)
	}
	return j, nil
}

func targetInParent(cfg config.JointConfig, parent *actor.RigidBody) mgl64.Vec3 {
	if parent == nil {
		return vec(cfg.Target)
	}
	return parent.Transform.UntransformPoint(vec(cfg.Target))
}

func newIk6DofEffectorFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	frame := pivotFrame(cfg)
	frame.Position = vec(cfg.Point)
	j := NewIk6DofEffector(frame, child, parent)
	j.SetTargetPosition(targetInParent(cfg, parent))
	if cfg.Spring > 0 {
		j.SetLinearSpringDamper(regularizer(cfg), cfg.Spring, cfg.Damper)
	}
	j.MaxForce = cfg.MaxForce
	j.MaxTorque = cfg.MaxTorque
	return j, nil
}

func newIkSwivelPositionEffectorFromConfig(cfg config.JointConfig, child, parent *actor.RigidBody) (Joint, error) {
	j := NewIkSwivelPositionEffector(pivotFrame(cfg), vec(cfg.Point), child, parent)
	j.SetTargetPosition(targetInParent(cfg, parent))
	if cfg.Spring > 0 {
		j.SetLinearSpringDamper(regularizer(cfg), cfg.Spring, cfg.Damper)
	}
	if cfg.Swivel != 0 {
		j.SetSwivelAngle(cfg.Swivel)
	}
	j.MaxForce = cfg.MaxForce
	j.MaxTorque = cfg.MaxTorque
	return j, nil
}
