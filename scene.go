package ligament

import (
	"fmt"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene maps the names of a scene description to what LoadScene created
type Scene struct {
	Bodies map[string]actor.BodyHandle
	Joints map[string]constraint.Joint
	Models map[string]*Model
}

// LoadScene creates the bodies, joints and models of a scene description in the world.
// A joint parent that is empty or "world" attaches to the static world.
func LoadScene(w *World, cfg config.SceneConfig) (*Scene, error) {
	scene := &Scene{
		Bodies: make(map[string]actor.BodyHandle, len(cfg.Bodies)),
		Joints: make(map[string]constraint.Joint, len(cfg.Joints)),
		Models: make(map[string]*Model, len(cfg.Models)),
	}

	for _, bc := range cfg.Bodies {
		body, err := newBody(bc)
		if err != nil {
			return nil, err
		}
		scene.Bodies[bc.Name] = w.AddBody(body)
	}

	bodyNamed := func(name string) (*actor.RigidBody, error) {
		if name == "" || name == "world" {
			return nil, nil
		}
		h, ok := scene.Bodies[name]
		if !ok {
			return nil, fmt.Errorf("body %q: %w", name, ErrUnknownName)
		}
		return w.Body(h)
	}

	for _, jc := range cfg.Joints {
		child, err := bodyNamed(jc.Child)
		if err != nil {
			return nil, fmt.Errorf("joint %q: %w", jc.Name, err)
		}
		parent, err := bodyNamed(jc.Parent)
		if err != nil {
			return nil, fmt.Errorf("joint %q: %w", jc.Name, err)
		}
		joint, err := constraint.New(jc, child, parent)
		if err != nil {
			return nil, err
		}
		if err := w.AddJoint(joint); err != nil {
			return nil, fmt.Errorf("joint %q: %w", jc.Name, err)
		}
		scene.Joints[jc.Name] = joint
	}

	for _, mc := range cfg.Models {
		root, ok := scene.Bodies[mc.Root]
		if !ok {
			return nil, fmt.Errorf("model %q: body %q: %w", mc.Name, mc.Root, ErrUnknownName)
		}
		model := NewModel(mc.Name, root)
		for _, name := range mc.Joints {
			joint, ok := scene.Joints[name]
			if !ok {
				return nil, fmt.Errorf("model %q: joint %q: %w", mc.Name, name, ErrUnknownName)
			}
			model.Joints = append(model.Joints, joint)
		}
		if err := w.AddModel(model); err != nil {
			return nil, err
		}
		scene.Models[mc.Name] = model
	}
	return scene, nil
}

func newBody(bc config.BodyConfig) (*actor.RigidBody, error) {
	var shape actor.ShapeInterface
	switch bc.Shape {
	case "box":
		shape = &actor.Box{HalfExtents: mgl64.Vec3(bc.HalfExtents)}
	case "sphere":
		shape = &actor.Sphere{Radius: bc.Radius}
	case "plane":
		normal := mgl64.Vec3(bc.Normal)
		if normal.Len() == 0 {
			normal = mgl64.Vec3{0, 1, 0}
		}
		shape = &actor.Plane{Normal: normal.Normalize()}
	default:
		return nil, fmt.Errorf("body %q: %w: %q", bc.Name, ErrUnknownShape, bc.Shape)
	}

	transform := actor.NewTransform()
	transform.Position = mgl64.Vec3(bc.Position)
	if front, up := mgl64.Vec3(bc.Front), mgl64.Vec3(bc.Up); front.Len() > 0 && up.Len() > 0 {
		transform = actor.TransformFromAxes(transform.Position, front, up)
	}

	bodyType := actor.BodyTypeDynamic
	if bc.Static || bc.Shape == "plane" {
		bodyType = actor.BodyTypeStatic
	}
	body := actor.NewRigidBody(transform, shape, bodyType, bc.Density)
	body.Material.StaticFriction = bc.Friction
	body.Material.DynamicFriction = bc.Friction
	body.Material.Restitution = bc.Restitution
	if bodyType == actor.BodyTypeDynamic {
		body.Velocity = mgl64.Vec3(bc.Velocity)
		body.AngularVelocity = mgl64.Vec3(bc.Omega)
	}
	return body, nil
}
