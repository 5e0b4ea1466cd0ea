package main

import (
	"fmt"
	"log"
	"math"

	"github.com/akmonengine/ligament"
	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	dt       = 1.0 / 60.0
	maxSteps = 240
)

// Arm is a two link planar arm on a turntable, driven by an effector at the tip of the forearm
type Arm struct {
	Base, Upper, Forearm *actor.RigidBody
	Effector             *constraint.Ik6DofEffector
	Model                *ligament.Model
}

func link(position mgl64.Vec3, halfLength float64) *actor.RigidBody {
	return actor.NewRigidBody(
		actor.NewTransformFrom(position, mgl64.QuatIdent()),
		&actor.Box{HalfExtents: mgl64.Vec3{halfLength, 0.05, 0.05}},
		actor.BodyTypeDynamic,
		100,
	)
}

// SetupScene creates the ground, the arm and its model
func SetupScene() (*ligament.World, *Arm, error) {
	world := ligament.NewWorld(*config.DefaultConfig())

	ground := actor.NewRigidBody(actor.NewTransform(), &actor.Plane{Normal: mgl64.Vec3{0, 1, 0}}, actor.BodyTypeStatic, 0)
	ground.Material.StaticFriction = 0.8
	world.AddBody(ground)

	arm := &Arm{
		Base:    actor.NewRigidBody(actor.NewTransformFrom(mgl64.Vec3{0, 0.25, 0}, mgl64.QuatIdent()), &actor.Box{HalfExtents: mgl64.Vec3{0.2, 0.1, 0.2}}, actor.BodyTypeDynamic, 100),
		Upper:   link(mgl64.Vec3{0.5, 0.35, 0}, 0.5),
		Forearm: link(mgl64.Vec3{1.4, 0.35, 0}, 0.4),
	}
	for _, body := range []*actor.RigidBody{arm.Base, arm.Upper, arm.Forearm} {
		world.AddBody(body)
	}

	turntable := constraint.NewHinge(actor.TransformFromAxes(mgl64.Vec3{0, 0.15, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}), arm.Base, nil)
	shoulder := constraint.NewHinge(actor.TransformFromAxes(mgl64.Vec3{0, 0.35, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}), arm.Upper, arm.Base)
	shoulder.SetLimits(-0.2, math.Pi/2)
	elbow := constraint.NewHinge(actor.TransformFromAxes(mgl64.Vec3{1, 0.35, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}), arm.Forearm, arm.Upper)
	elbow.SetLimits(-2.5, 2.5)

	arm.Effector = constraint.NewIk6DofEffector(actor.NewTransformFrom(mgl64.Vec3{1.8, 0.35, 0}, mgl64.QuatIdent()), arm.Forearm, nil)
	arm.Effector.MaxForce = 500

	arm.Model = ligament.NewModel("arm", arm.Base.Handle(), turntable, shoulder, elbow, arm.Effector)
	arm.Model.SetIkMode(true, 200)
	if err := world.AddModel(arm.Model); err != nil {
		return nil, nil, err
	}
	return world, arm, nil
}

func main() {
	world, arm, err := SetupScene()
	if err != nil {
		log.Fatal(err)
	}

	world.Events.Subscribe(ligament.LIMIT_HIT, func(event ligament.Event) {
		hit := event.(ligament.LimitHitEvent)
		fmt.Printf("limit hit on joint %d axis %d\n", hit.Joint.Base().ID(), hit.Axis)
	})

	targets := []mgl64.Vec3{{1.2, 0.9, 0}, {0, 0.9, 1.2}, {3, 3, 0}}
	for _, target := range targets {
		arm.Effector.SetTargetPosition(target)
		fmt.Printf("target %v\n", target)

		for step := 0; step < maxSteps; step++ {
			if err := world.Step(dt); err != nil {
				log.Fatal(err)
			}
		}
		anchor, err := world.Body(actor.WorldHandle)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  tip error %.3f m after %d steps\n", arm.Effector.Error(arm.Forearm, anchor), world.StepCount())
	}

	for _, info := range world.Topology() {
		fmt.Printf("joint %d %s island %d loop %v\n", info.ID, info.Kind, info.Island, info.Loop)
	}
}
