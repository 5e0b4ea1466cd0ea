package ligament

import (
	"cmp"
	"maps"
	"slices"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/constraint"
)

const (
	CONTACT_ENTER EventType = iota
	CONTACT_EXIT
	ON_SLEEP
	ON_WAKE
	LIMIT_HIT
)

// pairKey orders the two handles of a contact pair by slot index
type pairKey struct {
	bodyA actor.BodyHandle
	bodyB actor.BodyHandle
}

func makePairKey(bodyA, bodyB actor.BodyHandle) pairKey {
	if bodyB.Index < bodyA.Index {
		bodyA, bodyB = bodyB, bodyA
	}
	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

func comparePairs(a, b pairKey) int {
	return cmp.Or(
		cmp.Compare(a.bodyA.Index, b.bodyA.Index),
		cmp.Compare(a.bodyB.Index, b.bodyB.Index),
		cmp.Compare(a.bodyA.Generation, b.bodyA.Generation),
		cmp.Compare(a.bodyB.Generation, b.bodyB.Generation),
	)
}

// sortedPairs returns the pairs of the set ordered by slot index
func sortedPairs(pairs map[pairKey]bool) []pairKey {
	return slices.SortedFunc(maps.Keys(pairs), comparePairs)
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ContactEnterEvent is sent the first step a body touches a plane
type ContactEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e ContactEnterEvent) Type() EventType { return CONTACT_ENTER }

type ContactExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e ContactExitEvent) Type() EventType { return CONTACT_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// LimitHitEvent is sent when a joint limit had to stop its axis harder than the configured
// maximum stop acceleration. The step still completes.
type LimitHitEvent struct {
	Joint constraint.Joint
	Axis  int
}

func (e LimitHitEvent) Type() EventType { return LIMIT_HIT }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers what happens during a step and dispatches it from Sync, on the caller goroutine.
type Events struct {
	listeners map[EventType][]EventListener

	buffer []Event

	// Contact tracking for Enter/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool
	bodies              map[pairKey][2]*actor.RigidBody

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		bodies:              make(map[pairKey][2]*actor.RigidBody),
		sleepStates:         make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type. It must not be called while a step is running.
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContact marks the pair as touching this step and reports whether it was touching before
func (e *Events) recordContact(bodyA, bodyB *actor.RigidBody) bool {
	pair := makePairKey(bodyA.Handle(), bodyB.Handle())
	e.currentActivePairs[pair] = true
	e.bodies[pair] = [2]*actor.RigidBody{bodyA, bodyB}
	return e.previousActivePairs[pair]
}

func (e *Events) emitLimitHit(joint constraint.Joint, axis int) {
	e.buffer = append(e.buffer, LimitHitEvent{Joint: joint, Axis: axis})
}

// processContactEvents compares current and previous pairs to detect Enter/Exit.
// Events of one step are buffered in pair order.
func (e *Events) processContactEvents() {
	for _, pair := range sortedPairs(e.currentActivePairs) {
		if !e.previousActivePairs[pair] {
			bodies := e.bodies[pair]
			e.buffer = append(e.buffer, ContactEnterEvent{BodyA: bodies[0], BodyB: bodies[1]})
		}
	}

	for _, pair := range sortedPairs(e.previousActivePairs) {
		if !e.currentActivePairs[pair] {
			bodies := e.bodies[pair]
			e.buffer = append(e.buffer, ContactExitEvent{BodyA: bodies[0], BodyB: bodies[1]})
			delete(e.bodies, pair)
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// forget drops every state held for a removed body. No exit event is sent for its contacts.
func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
	h := body.Handle()
	for pair := range e.bodies {
		if pair.bodyA == h || pair.bodyB == h {
			delete(e.previousActivePairs, pair)
			delete(e.currentActivePairs, pair)
			delete(e.bodies, pair)
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	buffer := e.buffer
	e.buffer = make([]Event, 0, cap(buffer))
	for _, event := range buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
}
