package ligament_test

import (
	"io"
	"log"
	"math"

	"github.com/akmonengine/ligament"
	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const dt = 1.0 / 60.0

func bar(position mgl64.Vec3) *actor.RigidBody {
	return actor.NewRigidBody(actor.NewTransformFrom(position, mgl64.QuatIdent()), &actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.1, 0.1}}, actor.BodyTypeDynamic, 10)
}

func hingeZ(child, parent *actor.RigidBody, pivot mgl64.Vec3) *constraint.Hinge {
	return constraint.NewHinge(actor.TransformFromAxes(pivot, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}), child, parent)
}

func relativeOmega(joint constraint.Joint, world *ligament.World) float64 {
	base := joint.Base()
	body0, err := world.Body(base.Body0())
	Expect(err).NotTo(HaveOccurred())
	body1, err := world.Body(base.Body1())
	Expect(err).NotTo(HaveOccurred())
	return body0.AngularVelocity.Sub(body1.AngularVelocity).Z()
}

var _ = Describe("World", func() {
	var world *ligament.World

	BeforeEach(func() {
		world = ligament.NewWorld(*config.DefaultConfig())
		world.Logger = log.New(io.Discard, "", 0)
	})

	Describe("a three link chain hinged to the world", func() {
		var links []*actor.RigidBody
		var joints []constraint.Joint

		BeforeEach(func() {
			links = []*actor.RigidBody{bar(mgl64.Vec3{0.5, 0, 0}), bar(mgl64.Vec3{1.5, 0, 0}), bar(mgl64.Vec3{2.5, 0, 0})}
			for _, link := range links {
				world.AddBody(link)
			}
			joints = []constraint.Joint{
				hingeZ(links[0], nil, mgl64.Vec3{0, 0, 0}),
				hingeZ(links[1], links[0], mgl64.Vec3{1, 0, 0}),
				hingeZ(links[2], links[1], mgl64.Vec3{2, 0, 0}),
			}
			Expect(world.AddModel(ligament.NewModel("chain", links[0].Handle(), joints...))).To(Succeed())
		})

		It("forms one tree island rooted at the first link", func() {
			islands := world.Islands()
			Expect(islands).To(HaveLen(1))
			Expect(islands[0].IsTree()).To(BeTrue())
			Expect(islands[0].Root).To(BeIdenticalTo(links[0]))
			Expect(islands[0].Bodies).To(HaveLen(3))
		})

		It("keeps the links attached while it swings", func() {
			for i := 0; i < 30; i++ {
				Expect(world.Step(dt)).To(Succeed())
			}
			for i, joint := range joints {
				hinge := joint.(*constraint.Hinge)
				matrix0, matrix1 := hinge.CalculateGlobalMatrix(links[i], parentOf(world, hinge))
				Expect(matrix0.Position.Sub(matrix1.Position).Len()).To(BeNumerically("<", 0.05))
			}
		})

		It("reports the force holding the chain up", func() {
			Expect(world.Step(dt)).To(Succeed())
			root := joints[0].Base()
			Expect(root.RowCount()).To(BeNumerically(">", 0))

			force := 0.0
			for row := 0; row < 3; row++ {
				force += root.Force(row) * root.Force(row)
			}
			Expect(math.Sqrt(force)).To(BeNumerically(">", 0))
		})

		It("removes the joints of a removed link", func() {
			Expect(world.RemoveBody(links[2].Handle())).To(Succeed())
			Expect(world.Joints()).To(HaveLen(2))
			Expect(world.Islands()[0].Bodies).To(HaveLen(2))
		})
	})

	Describe("a gear between two wheels", func() {
		It("couples their speeds", func() {
			world.Config.Solver.Gravity = [3]float64{}
			left, right := bar(mgl64.Vec3{0, 0, 0}), bar(mgl64.Vec3{3, 0, 0})
			world.AddBody(left)
			world.AddBody(right)
			axleLeft := hingeZ(left, nil, mgl64.Vec3{0, 0, 0})
			axleRight := hingeZ(right, nil, mgl64.Vec3{3, 0, 0})
			gear := constraint.NewGear(1, mgl64.Vec3{0, 0, 1}, left, mgl64.Vec3{0, 0, 1}, right)
			for _, joint := range []constraint.Joint{axleLeft, axleRight, gear} {
				Expect(world.AddJoint(joint)).To(Succeed())
			}
			left.SetOmega(mgl64.Vec3{0, 0, 2})

			for i := 0; i < 10; i++ {
				Expect(world.Step(dt)).To(Succeed())
			}
			Expect(relativeOmega(axleLeft, world) + relativeOmega(axleRight, world)).To(BeNumerically("~", 0, 1e-2))
			Expect(math.Abs(left.AngularVelocity.Z())).To(BeNumerically(">", 0.1))
		})
	})

	Describe("sleeping", func() {
		It("puts a resting island to sleep and wakes it on demand", func() {
			world.Config.Solver.Gravity = [3]float64{}
			world.Config.Sleep.Steps = 3
			body := bar(mgl64.Vec3{})
			world.AddBody(body)

			var events []ligament.EventType
			record := func(event ligament.Event) { events = append(events, event.Type()) }
			world.Events.Subscribe(ligament.ON_SLEEP, record)
			world.Events.Subscribe(ligament.ON_WAKE, record)

			for i := 0; i < 3; i++ {
				Expect(world.Step(dt)).To(Succeed())
			}
			Expect(body.IsSleeping).To(BeTrue())

			body.AddForce(mgl64.Vec3{1, 0, 0})
			Expect(world.Step(dt)).To(Succeed())
			Expect(body.IsSleeping).To(BeFalse())
			Expect(events).To(Equal([]ligament.EventType{ligament.ON_SLEEP, ligament.ON_WAKE}))
		})
	})

	Describe("loading a scene", func() {
		It("builds bodies, joints and models by name", func() {
			scene := config.SceneConfig{
				Bodies: []config.BodyConfig{
					{Name: "ground", Shape: "plane", Normal: [3]float64{0, 1, 0}},
					{Name: "upper", Shape: "box", HalfExtents: [3]float64{0.5, 0.1, 0.1}, Density: 10, Position: [3]float64{0.5, 1, 0}},
					{Name: "lower", Shape: "box", HalfExtents: [3]float64{0.5, 0.1, 0.1}, Density: 10, Position: [3]float64{1.5, 1, 0}},
				},
				Joints: []config.JointConfig{
					{Name: "shoulder", Kind: "hinge", Child: "upper", Pivot: [3]float64{0, 1, 0}, Pin: [3]float64{0, 0, 1}},
					{Name: "elbow", Kind: "hinge", Child: "lower", Parent: "upper", Pivot: [3]float64{1, 1, 0}, Pin: [3]float64{0, 0, 1}},
				},
				Models: []config.ModelConfig{{Name: "arm", Root: "upper", Joints: []string{"shoulder", "elbow"}}},
			}

			loaded, err := ligament.LoadScene(world, scene)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Bodies).To(HaveLen(3))
			Expect(loaded.Joints).To(HaveKey("elbow"))
			Expect(loaded.Models["arm"].Joints).To(HaveLen(2))

			ground, err := world.Body(loaded.Bodies["ground"])
			Expect(err).NotTo(HaveOccurred())
			Expect(ground.IsStatic()).To(BeTrue())
			Expect(world.Islands()).To(HaveLen(1))
		})

		It("rejects unknown names", func() {
			scene := config.SceneConfig{
				Joints: []config.JointConfig{{Name: "orphan", Kind: "hinge", Child: "missing"}},
			}
			_, err := ligament.LoadScene(world, scene)
			Expect(err).To(MatchError(ligament.ErrUnknownName))
		})

		It("rejects unknown joint kinds", func() {
			scene := config.SceneConfig{
				Bodies: []config.BodyConfig{{Name: "a", Shape: "sphere", Radius: 0.5, Density: 1}},
				Joints: []config.JointConfig{{Name: "weld", Kind: "weld", Child: "a"}},
			}
			_, err := ligament.LoadScene(world, scene)
			Expect(err).To(MatchError(ligament.ErrUnknownJointKind))
		})

		It("rejects unknown shapes", func() {
			scene := config.SceneConfig{
				Bodies: []config.BodyConfig{{Name: "a", Shape: "torus"}},
			}
			_, err := ligament.LoadScene(world, scene)
			Expect(err).To(MatchError(ligament.ErrUnknownShape))
		})
	})
})

func parentOf(world *ligament.World, joint constraint.Joint) *actor.RigidBody {
	body, err := world.Body(joint.Base().Body1())
	Expect(err).NotTo(HaveOccurred())
	return body
}
