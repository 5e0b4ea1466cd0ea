package skeleton

import (
	"testing"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type testScene struct {
	world  *actor.RigidBody
	bodies []*actor.RigidBody
	joints []constraint.Joint
	byID   map[actor.BodyHandle]*actor.RigidBody
}

func newTestScene() *testScene {
	return &testScene{
		world: actor.NewStaticBody(actor.NewTransform()),
		byID:  make(map[actor.BodyHandle]*actor.RigidBody),
	}
}

func (s *testScene) add(body *actor.RigidBody) *actor.RigidBody {
	body.SetHandle(actor.BodyHandle{Index: uint32(len(s.bodies)), Generation: 1})
	s.bodies = append(s.bodies, body)
	s.byID[body.Handle()] = body
	return body
}

func (s *testScene) link(x float64) *actor.RigidBody {
	return s.add(actor.NewRigidBody(actor.NewTransformFrom(mgl64.Vec3{x, 0, 0}, mgl64.QuatIdent()), &actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.1, 0.1}}, actor.BodyTypeDynamic, 10))
}

func (s *testScene) hinge(child, parent *actor.RigidBody) *constraint.Hinge {
	pivot := actor.NewTransformFrom(child.Transform.Position.Sub(mgl64.Vec3{0.5, 0, 0}), mgl64.QuatIdent())
	h := constraint.NewHinge(pivot, child, parent)
	s.joints = append(s.joints, h)
	return h
}

func (s *testScene) resolve(h actor.BodyHandle) *actor.RigidBody {
	if h.IsWorld() {
		return s.world
	}
	return s.byID[h]
}

func (s *testScene) build(roots ...actor.BodyHandle) []*Island {
	return Build(s.bodies, s.joints, roots, s.resolve)
}

func sameBodies(t *testing.T, got, want []*actor.RigidBody) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d bodies, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("body %d = %v, want %v", i, got[i].Handle(), want[i].Handle())
		}
	}
}

func sameJoints(t *testing.T, links []Link, want ...constraint.Joint) {
	t.Helper()
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d", len(links), len(want))
	}
	for i := range want {
		if links[i].Joint != want[i] {
			t.Errorf("link %d = joint %d, want joint %d", i, links[i].Joint.Base().ID(), want[i].Base().ID())
		}
	}
}

// =============================================================================
// Partition Tests
// =============================================================================

func TestBuild_ChainAnchoredToWorld(t *testing.T) {
	s := newTestScene()
	a, b, c := s.link(1), s.link(2), s.link(3)
	j1 := s.hinge(a, nil)
	j2 := s.hinge(b, a)
	j3 := s.hinge(c, b)

	islands := s.build()
	if len(islands) != 1 {
		t.Fatalf("got %d islands, want 1", len(islands))
	}
	island := islands[0]

	if island.Root != a {
		t.Errorf("root = %v, want the body attached to the world", island.Root.Handle())
	}
	sameBodies(t, island.Bodies, []*actor.RigidBody{a, b, c})
	sameJoints(t, island.Links, j1, j2, j3)
	if !island.IsTree() {
		t.Error("a chain is a tree")
	}

	if island.Links[0].Index0 != 0 || island.Links[0].Index1 != -1 {
		t.Errorf("world link indices = (%d, %d), want (0, -1)", island.Links[0].Index0, island.Links[0].Index1)
	}
	if island.Links[0].Body1 != s.world {
		t.Error("the world handle should resolve to the world body")
	}
	if island.Links[2].Index0 != 2 || island.Links[2].Index1 != 1 {
		t.Errorf("last link indices = (%d, %d), want (2, 1)", island.Links[2].Index0, island.Links[2].Index1)
	}
}

func TestBuild_SeparateIslands(t *testing.T) {
	s := newTestScene()
	a, b := s.link(0), s.link(1)
	c, d := s.link(5), s.link(6)
	s.hinge(d, c)
	s.hinge(b, a)

	islands := s.build()
	if len(islands) != 2 {
		t.Fatalf("got %d islands, want 2", len(islands))
	}
	sameBodies(t, islands[0].Bodies, []*actor.RigidBody{a, b})
	sameBodies(t, islands[1].Bodies, []*actor.RigidBody{c, d})
	for _, island := range islands {
		for _, other := range islands {
			if island == other {
				continue
			}
			for _, body := range island.Bodies {
				if other.Contains(body.Handle()) {
					t.Errorf("%v belongs to two islands", body.Handle())
				}
			}
		}
	}
}

func TestBuild_StaticBodiesDoNotMerge(t *testing.T) {
	s := newTestScene()
	ground := s.add(actor.NewStaticBody(actor.NewTransform()))
	a, b := s.link(1), s.link(-1)
	s.hinge(a, ground)
	s.hinge(b, ground)

	islands := s.build()
	if len(islands) != 2 {
		t.Fatalf("got %d islands, want 2", len(islands))
	}
	for _, island := range islands {
		if len(island.Bodies) != 1 || !island.IsTree() {
			t.Errorf("island %d: %d bodies, tree %v", island.ID, len(island.Bodies), island.IsTree())
		}
		if island.Contains(ground.Handle()) {
			t.Error("a static body joined an island")
		}
	}
}

func TestBuild_BodyWithoutJoints(t *testing.T) {
	s := newTestScene()
	a := s.link(0)

	islands := s.build()
	if len(islands) != 1 || islands[0].Root != a || len(islands[0].Links) != 0 {
		t.Fatalf("a free body forms its own island")
	}
	if !islands[0].IsTree() {
		t.Error("an island without joints is a tree")
	}
}

func TestBuild_DisabledJoint(t *testing.T) {
	s := newTestScene()
	a, b := s.link(0), s.link(1)
	j := s.hinge(b, a)
	j.SetEnabled(false)

	if islands := s.build(); len(islands) != 2 {
		t.Errorf("got %d islands, want 2", len(islands))
	}
}

// =============================================================================
// Loop Classification Tests
// =============================================================================

func TestBuild_ClosedLoop(t *testing.T) {
	s := newTestScene()
	a, b, c := s.link(0), s.link(1), s.link(2)
	ab := s.hinge(b, a)
	bc := s.hinge(c, b)
	ca := s.hinge(a, c)

	islands := s.build()
	if len(islands) != 1 {
		t.Fatalf("got %d islands, want 1", len(islands))
	}
	island := islands[0]

	if island.IsTree() {
		t.Fatal("a triangle is not a tree")
	}
	sameBodies(t, island.Bodies, []*actor.RigidBody{a, b, c})
	sameJoints(t, island.TreeLinks(), ab, ca)
	sameJoints(t, island.LoopLinks(), bc)
	if !island.LoopLinks()[0].Loop || island.TreeLinks()[0].Loop {
		t.Error("Loop flag does not match the classification")
	}
}

func TestBuild_GearAndExtraWorldAttachment(t *testing.T) {
	s := newTestScene()
	a, b := s.link(0), s.link(2)
	ha := s.hinge(a, nil)
	hb := s.hinge(b, nil)
	gear := constraint.NewGear(2, mgl64.Vec3{1, 0, 0}, a, mgl64.Vec3{1, 0, 0}, b)
	s.joints = append(s.joints, gear)

	islands := s.build()
	if len(islands) != 1 {
		t.Fatalf("got %d islands, want 1", len(islands))
	}
	island := islands[0]

	sameBodies(t, island.Bodies, []*actor.RigidBody{a, b})
	sameJoints(t, island.TreeLinks(), ha)
	sameJoints(t, island.LoopLinks(), gear, hb)
}

func TestBuild_LoopModel(t *testing.T) {
	s := newTestScene()
	a, b := s.link(0), s.link(1)
	j := s.hinge(b, a)
	j.SetSolverModel(constraint.ModelLoop)

	island := s.build()[0]
	if island.IsTree() || len(island.LoopLinks()) != 1 {
		t.Error("a joint flagged as loop must close a loop")
	}
	sameBodies(t, island.Bodies, []*actor.RigidBody{a, b})
}

func TestBuild_ModelRoot(t *testing.T) {
	s := newTestScene()
	a, b, c := s.link(0), s.link(1), s.link(2)
	s.hinge(a, nil)
	s.hinge(b, a)
	s.hinge(c, b)

	island := s.build(c.Handle())[0]
	if island.Root != c {
		t.Fatalf("root = %v, want the model root", island.Root.Handle())
	}
	sameBodies(t, island.Bodies, []*actor.RigidBody{c, b, a})
	// the world attachment is not at the root any more
	if island.IsTree() || len(island.LoopLinks()) != 1 {
		t.Errorf("loops = %d, want the world attachment only", len(island.LoopLinks()))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	s := newTestScene()
	a, b, c, d := s.link(0), s.link(1), s.link(2), s.link(3)
	s.hinge(b, a)
	s.hinge(c, a)
	s.hinge(d, b)
	s.hinge(d, c)

	first := s.build()[0]
	for i := 0; i < 10; i++ {
		again := s.build()[0]
		sameBodies(t, again.Bodies, first.Bodies)
		for k := range first.Links {
			if again.Links[k].Joint != first.Links[k].Joint {
				t.Fatalf("build %d: link %d differs", i, k)
			}
		}
	}
}

// =============================================================================
// Contact Tests
// =============================================================================

func TestIsland_Contacts(t *testing.T) {
	s := newTestScene()
	ground := s.add(actor.NewStaticBody(actor.NewTransform()))
	a := s.link(0)
	s.hinge(a, nil)

	island := s.build()[0]
	contact := constraint.NewContact(a, ground, constraint.ContactPoint{Normal: mgl64.Vec3{0, 1, 0}})
	island.AddContact(contact, a, ground)

	if len(island.Contacts) != 1 || island.Contacts[0].Index0 != 0 || island.Contacts[0].Index1 != -1 {
		t.Fatalf("contact link = %+v", island.Contacts)
	}
	if island.RowCapacity() != 7+3 {
		t.Errorf("RowCapacity() = %d, want 10", island.RowCapacity())
	}
	island.ClearContacts()
	if len(island.Contacts) != 0 {
		t.Error("ClearContacts() left contacts behind")
	}
}

// =============================================================================
// Sleep Tests
// =============================================================================

func TestIsland_Sleep(t *testing.T) {
	s := newTestScene()
	a, b := s.link(0), s.link(1)
	s.hinge(b, a)
	island := s.build()[0]
	cfg := config.SleepConfig{Steps: 3, Energy: 1e-3, Residual: 1e-3}

	if island.UpdateSleep(cfg, 0) || island.UpdateSleep(cfg, 0) {
		t.Fatal("fell asleep before the rest period")
	}
	if !island.UpdateSleep(cfg, 0) {
		t.Fatal("expected the island to fall asleep")
	}
	if !island.IsSleeping() || !a.IsSleeping || !b.IsSleeping {
		t.Error("every body sleeps with the island")
	}
	if island.UpdateSleep(cfg, 0) {
		t.Error("a sleeping island does not fall asleep twice")
	}

	b.SetVelocity(mgl64.Vec3{1, 0, 0})
	if !island.SyncSleep() {
		t.Fatal("waking one body wakes the island")
	}
	if island.IsSleeping() || a.IsSleeping {
		t.Error("every body wakes with the island")
	}
}

func TestIsland_SleepCounterResets(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(body *actor.RigidBody)
		residual float64
	}{
		{"moving", func(body *actor.RigidBody) { body.Velocity = mgl64.Vec3{1, 0, 0} }, 0},
		{"residual", func(body *actor.RigidBody) {}, 1},
		{"auto sleep disabled", func(body *actor.RigidBody) { body.AutoSleep = false }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScene()
			a := s.link(0)
			island := s.build()[0]
			tt.prepare(a)

			cfg := config.SleepConfig{Steps: 1, Energy: 1e-3, Residual: 1e-3}
			if island.UpdateSleep(cfg, tt.residual) {
				t.Error("the island should stay awake")
			}
		})
	}
}

func TestBuild_WakesMixedIsland(t *testing.T) {
	s := newTestScene()
	a, b := s.link(0), s.link(1)
	a.Sleep()
	s.hinge(b, a)

	island := s.build()[0]
	if island.IsSleeping() || a.IsSleeping {
		t.Error("a sleeping body linked to an awake one must wake")
	}

	a.Sleep()
	b.Sleep()
	if island = s.build()[0]; !island.IsSleeping() {
		t.Error("an island of sleeping bodies starts asleep")
	}
}
