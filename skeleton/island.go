package skeleton

import (
	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
)

// Link is a joint resolved against the bodies of an island.
type Link struct {
	Joint constraint.Joint
	Body0 *actor.RigidBody
	Body1 *actor.RigidBody
	// Index0 and Index1 locate the bodies in Island.Bodies, -1 for static bodies
	Index0 int
	Index1 int
	Loop   bool
}

// Island is a connected set of dynamic bodies and the joints between them.
// Bodies are in BFS order from Root; Links hold the tree joints first, then the loop-closing ones.
type Island struct {
	ID     int
	Root   *actor.RigidBody
	Bodies []*actor.RigidBody
	Links  []Link

	// Contacts are generated by the world for the current step only
	Contacts []Link

	treeLinks int
	index     map[actor.BodyHandle]int

	sleeping  bool
	restSteps int
}

func newIsland(id int) *Island {
	return &Island{
		ID:    id,
		index: make(map[actor.BodyHandle]int),
	}
}

func (i *Island) addBody(body *actor.RigidBody) int {
	i.index[body.Handle()] = len(i.Bodies)
	i.Bodies = append(i.Bodies, body)
	return len(i.Bodies) - 1
}

// IndexOf returns the position of a body in Bodies, or -1 when it is not part of the island
func (i *Island) IndexOf(h actor.BodyHandle) int {
	if index, ok := i.index[h]; ok {
		return index
	}
	return -1
}

func (i *Island) Contains(h actor.BodyHandle) bool {
	_, ok := i.index[h]
	return ok
}

// IsTree reports whether the island has no loop-closing joint
func (i *Island) IsTree() bool {
	return i.treeLinks == len(i.Links)
}

func (i *Island) TreeLinks() []Link {
	return i.Links[:i.treeLinks]
}

func (i *Island) LoopLinks() []Link {
	return i.Links[i.treeLinks:]
}

// AddContact attaches a contact generated for this step; body1 is expected to be static
func (i *Island) AddContact(contact *constraint.Contact, body0, body1 *actor.RigidBody) {
	i.Contacts = append(i.Contacts, Link{
		Joint:  contact,
		Body0:  body0,
		Body1:  body1,
		Index0: i.IndexOf(body0.Handle()),
		Index1: i.IndexOf(body1.Handle()),
		Loop:   true,
	})
}

func (i *Island) ClearContacts() {
	i.Contacts = i.Contacts[:0]
}

// RowCapacity is the most rows the island joints and contacts can submit in one step
func (i *Island) RowCapacity() int {
	rows := 0
	for _, link := range i.Links {
		rows += link.Joint.Base().MaxRows()
	}
	for _, link := range i.Contacts {
		rows += link.Joint.Base().MaxRows()
	}
	return rows
}

func (i *Island) IsSleeping() bool {
	return i.sleeping
}

// EnergyPerMass returns the kinetic energy of the island divided by its mass
func (i *Island) EnergyPerMass() float64 {
	energy, mass := 0.0, 0.0
	for _, body := range i.Bodies {
		energy += body.KineticEnergy()
		mass += body.Material.GetMass()
	}
	if mass <= 0 {
		return 0
	}
	return energy / mass
}

// UpdateSleep counts the consecutive steps the island stayed at rest and puts it to sleep
// after cfg.Steps of them. It reports whether the island fell asleep during this call.
func (i *Island) UpdateSleep(cfg config.SleepConfig, residual float64) bool {
	if i.sleeping {
		return false
	}
	for _, body := range i.Bodies {
		if !body.AutoSleep {
			i.restSteps = 0
			return false
		}
	}
	if i.EnergyPerMass() > cfg.Energy || residual > cfg.Residual {
		i.restSteps = 0
		return false
	}

	i.restSteps++
	if i.restSteps < cfg.Steps {
		return false
	}
	for _, body := range i.Bodies {
		body.Sleep()
	}
	i.sleeping = true
	return true
}

// SyncSleep wakes the whole island when any of its bodies has been woken since it fell asleep.
// It reports whether the island woke up.
func (i *Island) SyncSleep() bool {
	if !i.sleeping {
		return false
	}
	for _, body := range i.Bodies {
		if !body.IsSleeping {
			i.Wake()
			return true
		}
	}
	return false
}

// Wake wakes every body of the island and resets the rest counter
func (i *Island) Wake() {
	for _, body := range i.Bodies {
		body.Awake()
		body.Equilibrium = false
	}
	i.sleeping = false
	i.restSteps = 0
}
