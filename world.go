package ligament

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/akmonengine/ligament/skeleton"
	"github.com/akmonengine/ligament/solver"
	"github.com/go-gl/mathgl/mgl64"
)

// slot is one entry of the body arena; generation changes every time the slot is freed
type slot struct {
	body       *actor.RigidBody
	generation uint32
}

// World owns the bodies, the joints and the models, and steps them.
// A World is driven from one goroutine; only QueueBodyForDelete may be called while a step runs.
type World struct {
	Config config.Config
	Logger *log.Logger
	Events Events

	slots []slot
	free  []uint32
	// world is the static anchor WorldHandle resolves to
	world *actor.RigidBody

	joints     []constraint.Joint
	jointsByID map[uint32]constraint.Joint
	models     []*Model

	islands  []*skeleton.Island
	islandOf map[actor.BodyHandle]*skeleton.Island
	dirty    bool

	solvers sync.Pool

	deleteMu    sync.Mutex
	deleteQueue []actor.BodyHandle

	running     chan struct{}
	stepErr     error
	accumulator float64
	steps       uint64
}

// NewWorld validates cfg and creates an empty world. Clamped configuration values are logged.
func NewWorld(cfg config.Config) *World {
	clamped := cfg.Validate()
	w := &World{
		Config:     cfg,
		Logger:     log.New(os.Stderr, "[ligament] ", log.LstdFlags),
		Events:     NewEvents(),
		world:      actor.NewStaticBody(actor.NewTransform()),
		jointsByID: make(map[uint32]constraint.Joint),
		islandOf:   make(map[actor.BodyHandle]*skeleton.Island),
	}
	w.solvers.New = func() any {
		return solver.New(&w.Config.Solver)
	}
	for _, name := range clamped {
		w.Logger.Printf("config: %s out of range, clamped", name)
	}
	return w
}

// AddBody stores the body in the arena and returns its handle. Adding a body twice returns
// the handle it already has.
func (w *World) AddBody(body *actor.RigidBody) actor.BodyHandle {
	w.wait()
	if w.lookup(body.Handle()) == body {
		return body.Handle()
	}

	var index uint32
	if n := len(w.free); n > 0 {
		index = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		index = uint32(len(w.slots))
		w.slots = append(w.slots, slot{generation: 1})
	}
	w.slots[index].body = body

	h := actor.BodyHandle{Index: index, Generation: w.slots[index].generation}
	body.SetHandle(h)
	w.dirty = true
	return h
}

// RemoveBody removes the body and every joint attached to it
func (w *World) RemoveBody(h actor.BodyHandle) error {
	w.wait()
	return w.removeBody(h)
}

func (w *World) removeBody(h actor.BodyHandle) error {
	body := w.lookup(h)
	if body == nil {
		return fmt.Errorf("remove %s: %w", h, ErrStaleHandle)
	}

	attached := make([]constraint.Joint, 0)
	for _, joint := range w.joints {
		base := joint.Base()
		if base.Body0() == h || base.Body1() == h {
			attached = append(attached, joint)
		}
	}
	for _, joint := range attached {
		w.removeJoint(joint)
	}

	w.Events.forget(body)
	delete(w.islandOf, h)

	s := &w.slots[h.Index]
	s.body = nil
	s.generation++
	w.free = append(w.free, h.Index)
	body.SetHandle(actor.WorldHandle)
	w.dirty = true
	return nil
}

// QueueBodyForDelete defers the removal of a body to the next Sync. It is safe to call from
// event listeners and from other goroutines while a step is running.
func (w *World) QueueBodyForDelete(h actor.BodyHandle) {
	w.deleteMu.Lock()
	defer w.deleteMu.Unlock()
	w.deleteQueue = append(w.deleteQueue, h)
}

func (w *World) drainDeleteQueue() {
	w.deleteMu.Lock()
	queue := w.deleteQueue
	w.deleteQueue = nil
	w.deleteMu.Unlock()

	for _, h := range queue {
		if err := w.removeBody(h); err != nil {
			w.Logger.Printf("deferred delete: %v", err)
			continue
		}
		w.Logger.Printf("deferred delete: %s removed", h)
	}
}

// AddJoint registers a joint whose bodies are already in the world
func (w *World) AddJoint(joint constraint.Joint) error {
	w.wait()
	return w.addJoint(joint)
}

func (w *World) addJoint(joint constraint.Joint) error {
	base := joint.Base()
	if _, ok := w.jointsByID[base.ID()]; ok {
		return nil
	}
	if base.Body0() == base.Body1() {
		return fmt.Errorf("joint %d: %w", base.ID(), ErrInvalidJointBodies)
	}
	for _, h := range []actor.BodyHandle{base.Body0(), base.Body1()} {
		if w.resolve(h) == nil {
			return fmt.Errorf("joint %d: %s: %w", base.ID(), h, ErrStaleHandle)
		}
	}

	w.joints = append(w.joints, joint)
	w.jointsByID[base.ID()] = joint
	w.dirty = true
	return nil
}

func (w *World) RemoveJoint(joint constraint.Joint) error {
	w.wait()
	if _, ok := w.jointsByID[joint.Base().ID()]; !ok {
		return fmt.Errorf("joint %d: %w", joint.Base().ID(), ErrUnknownJoint)
	}
	w.removeJoint(joint)
	return nil
}

func (w *World) removeJoint(joint constraint.Joint) {
	id := joint.Base().ID()
	delete(w.jointsByID, id)
	w.joints = slices.DeleteFunc(w.joints, func(j constraint.Joint) bool {
		return j.Base().ID() == id
	})
	for _, model := range w.models {
		model.Joints = slices.DeleteFunc(model.Joints, func(j constraint.Joint) bool {
			return j.Base().ID() == id
		})
	}
	w.dirty = true
}

// AddModel registers an articulation. Its joints are added to the world if they are not yet,
// and its root is preferred as the traversal root of the island holding it.
func (w *World) AddModel(model *Model) error {
	w.wait()
	root := w.lookup(model.Root)
	if root == nil {
		return fmt.Errorf("model %q: root %s: %w", model.Name, model.Root, ErrStaleHandle)
	}
	if root.IsStatic() {
		return fmt.Errorf("model %q: static root: %w", model.Name, ErrInvalidJointBodies)
	}
	for _, joint := range model.Joints {
		if err := w.addJoint(joint); err != nil {
			return fmt.Errorf("model %q: %w", model.Name, err)
		}
	}
	if !slices.Contains(w.models, model) {
		w.models = append(w.models, model)
	}
	w.dirty = true
	return nil
}

// Update starts one step of dt on a goroutine and returns. A step still running is waited for
// first.
func (w *World) Update(dt float64) {
	if err := w.Sync(); err != nil {
		w.Logger.Printf("step %d: %v", w.steps, err)
	}

	done := make(chan struct{})
	w.running = done
	go func() {
		defer close(done)
		w.stepErr = w.step(dt)
	}()
}

// Sync waits for the running step, removes the bodies queued for deletion and dispatches the
// buffered events. It returns the errors of the inverse dynamics pass of the step.
func (w *World) Sync() error {
	w.wait()
	w.drainDeleteQueue()
	w.Events.flush()

	err := w.stepErr
	w.stepErr = nil
	return err
}

func (w *World) wait() {
	if w.running != nil {
		<-w.running
		w.running = nil
	}
}

// Step runs one synchronous step of dt
func (w *World) Step(dt float64) error {
	w.Update(dt)
	return w.Sync()
}

// AdvanceTime accumulates elapsed time and runs as many fixed steps as it covers. Time beyond
// Timing.MaxSteps steps is discarded, so a slow frame cannot snowball.
func (w *World) AdvanceTime(elapsed float64) error {
	step := w.Config.Timing.FixedStep
	w.accumulator += elapsed

	maxSteps := float64(w.Config.Timing.MaxSteps)
	if w.accumulator > step*maxSteps {
		if extra := math.Floor(w.accumulator/step) - maxSteps; extra > 0 {
			w.accumulator -= extra * step
			w.Logger.Printf("advance: %.4fs discarded (%d steps)", extra*step, int(extra))
		}
	}

	var errs []error
	for w.accumulator > step {
		if err := w.Step(step); err != nil {
			errs = append(errs, err)
		}
		w.accumulator -= step
	}
	return errors.Join(errs...)
}

// StepCount is the number of steps run since the world was created
func (w *World) StepCount() uint64 {
	w.wait()
	return w.steps
}

// Body resolves a handle. WorldHandle resolves to the static world anchor.
func (w *World) Body(h actor.BodyHandle) (*actor.RigidBody, error) {
	w.wait()
	body := w.resolve(h)
	if body == nil {
		return nil, fmt.Errorf("%s: %w", h, ErrStaleHandle)
	}
	return body, nil
}

// Bodies returns the live bodies in arena order
func (w *World) Bodies() []*actor.RigidBody {
	w.wait()
	return w.bodies()
}

func (w *World) Joints() []constraint.Joint {
	w.wait()
	return slices.Clone(w.joints)
}

func (w *World) Models() []*Model {
	w.wait()
	return slices.Clone(w.models)
}

// Islands returns the islands of the current topology, rebuilding them if it changed
func (w *World) Islands() []*skeleton.Island {
	w.wait()
	if w.dirty {
		w.rebuild()
	}
	return slices.Clone(w.islands)
}

// JointInfo describes a joint with ids that stay stable across steps and rebuilds
type JointInfo struct {
	ID   uint32
	Kind string
	// Body0 and Body1 are RigidBody.ID values; zero is the world
	Body0 uint32
	Body1 uint32
	// Island is -1 for a joint outside any island, such as a disabled one
	Island int
	Loop   bool
}

// Topology lists the joints in insertion order, with their island and loop classification
func (w *World) Topology() []JointInfo {
	islands := w.Islands()

	type placement struct {
		island int
		loop   bool
	}
	placed := make(map[uint32]placement, len(w.joints))
	for _, island := range islands {
		for _, link := range island.Links {
			placed[link.Joint.Base().ID()] = placement{island: island.ID, loop: link.Loop}
		}
	}

	bodyID := func(h actor.BodyHandle) uint32 {
		if h.IsWorld() {
			return 0
		}
		if body := w.lookup(h); body != nil {
			return body.ID
		}
		return 0
	}

	infos := make([]JointInfo, 0, len(w.joints))
	for _, joint := range w.joints {
		base := joint.Base()
		info := JointInfo{
			ID:     base.ID(),
			Kind:   base.Kind().String(),
			Body0:  bodyID(base.Body0()),
			Body1:  bodyID(base.Body1()),
			Island: -1,
		}
		if p, ok := placed[base.ID()]; ok {
			info.Island, info.Loop = p.island, p.loop
		}
		infos = append(infos, info)
	}
	return infos
}

func (w *World) lookup(h actor.BodyHandle) *actor.RigidBody {
	if h.IsWorld() || int(h.Index) >= len(w.slots) {
		return nil
	}
	s := w.slots[h.Index]
	if s.body == nil || s.generation != h.Generation {
		return nil
	}
	return s.body
}

func (w *World) resolve(h actor.BodyHandle) *actor.RigidBody {
	if h.IsWorld() {
		return w.world
	}
	return w.lookup(h)
}

func (w *World) bodies() []*actor.RigidBody {
	bodies := make([]*actor.RigidBody, 0, len(w.slots))
	for _, s := range w.slots {
		if s.body != nil {
			bodies = append(bodies, s.body)
		}
	}
	return bodies
}

func (w *World) rebuild() {
	roots := make([]actor.BodyHandle, 0, len(w.models))
	for _, model := range w.models {
		roots = append(roots, model.Root)
	}

	w.islands = skeleton.Build(w.bodies(), w.joints, roots, w.resolve)
	clear(w.islandOf)
	bodies, loops := 0, 0
	for _, island := range w.islands {
		for _, body := range island.Bodies {
			w.islandOf[body.Handle()] = island
		}
		bodies += len(island.Bodies)
		loops += len(island.LoopLinks())
	}
	w.dirty = false
	w.Logger.Printf("island rebuild: %d islands, %d bodies, %d joints, %d loop closing", len(w.islands), bodies, len(w.joints), loops)
}

// step runs the phases of one step: velocity integration, island rebuild, contacts, the
// parallel island solve, position integration and sleep bookkeeping.
func (w *World) step(dt float64) error {
	if dt <= 0 {
		return nil
	}
	workers := w.Config.Solver.Workers
	gravity := mgl64.Vec3(w.Config.Solver.Gravity)
	bodies := w.bodies()

	task(workers, bodies, func(_ int, body *actor.RigidBody) {
		body.IntegrateVelocity(dt, gravity)
	})

	if w.dirty {
		w.rebuild()
	}
	for _, island := range w.islands {
		island.SyncSleep()
	}
	w.collide(bodies)

	active := make([]*skeleton.Island, 0, len(w.islands))
	for _, island := range w.islands {
		if !island.IsSleeping() {
			active = append(active, island)
		}
	}

	results := make([]solver.Result, len(active))
	errs := make([]error, len(active))
	task(workers, active, func(i int, island *skeleton.Island) {
		s := w.solvers.Get().(*solver.Solver)
		defer w.solvers.Put(s)

		if solver.NeedsInverseDynamics(island) {
			if err := s.SolveInverseDynamics(island, dt); err != nil {
				errs[i] = fmt.Errorf("island %d: %w", island.ID, err)
			}
		}
		results[i] = s.Solve(island, dt)
	})

	task(workers, bodies, func(_ int, body *actor.RigidBody) {
		body.IntegratePosition(dt)
	})

	for i, island := range active {
		island.UpdateSleep(w.Config.Sleep, results[i].Residual)
		for _, hit := range results[i].Hits {
			if joint, ok := w.jointsByID[hit.JointID]; ok {
				w.Events.emitLimitHit(joint, hit.Axis)
			}
		}
	}
	w.Events.processSleepEvents(bodies)
	w.steps++
	return errors.Join(errs...)
}
