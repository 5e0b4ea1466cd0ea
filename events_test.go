package ligament

import (
	"testing"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// createTestBody creates a minimal RigidBody placed in slot index for event testing
func createTestBody(index uint32, isSleeping bool) *actor.RigidBody {
	rb := actor.NewRigidBody(
		actor.NewTransform(),
		&actor.Sphere{Radius: 1.0},
		actor.BodyTypeDynamic,
		1.0,
	)
	rb.SetHandle(actor.BodyHandle{Index: index, Generation: 1})
	rb.IsSleeping = isSleeping
	return rb
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func (ec *eventCapture) count(eventType EventType) int {
	n := 0
	for _, e := range ec.events {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

func subscribeAll(events *Events, capture *eventCapture) {
	for _, eventType := range []EventType{CONTACT_ENTER, CONTACT_EXIT, ON_SLEEP, ON_WAKE, LIMIT_HIT} {
		events.Subscribe(eventType, capture.capture)
	}
}

// =============================================================================
// Subscribe and Listeners Tests
// =============================================================================

func TestEvents_Subscribe(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}

	events.Subscribe(CONTACT_ENTER, capture.capture)

	if len(events.listeners[CONTACT_ENTER]) != 1 {
		t.Errorf("Expected 1 listener for CONTACT_ENTER, got %d", len(events.listeners[CONTACT_ENTER]))
	}
}

func TestEvents_MultipleListeners(t *testing.T) {
	events := NewEvents()
	first, second := &eventCapture{}, &eventCapture{}
	events.Subscribe(ON_SLEEP, first.capture)
	events.Subscribe(ON_SLEEP, second.capture)

	body := createTestBody(0, false)
	events.processSleepEvents([]*actor.RigidBody{body})
	body.IsSleeping = true
	events.processSleepEvents([]*actor.RigidBody{body})
	events.flush()

	if first.count(ON_SLEEP) != 1 || second.count(ON_SLEEP) != 1 {
		t.Errorf("each listener should receive the event once, got %d and %d", first.count(ON_SLEEP), second.count(ON_SLEEP))
	}
	if len(events.buffer) != 0 {
		t.Errorf("buffer should be empty after flush, has %d events", len(events.buffer))
	}
}

// =============================================================================
// Pair Key Tests
// =============================================================================

func TestMakePairKey_Normalization(t *testing.T) {
	a := actor.BodyHandle{Index: 1, Generation: 1}
	b := actor.BodyHandle{Index: 7, Generation: 3}

	if makePairKey(a, b) != makePairKey(b, a) {
		t.Error("pair key should not depend on argument order")
	}
	key := makePairKey(b, a)
	if key.bodyA != a || key.bodyB != b {
		t.Errorf("pair key = %v, want lowest index first", key)
	}
}

func TestMakePairKey_GenerationMatters(t *testing.T) {
	a := actor.BodyHandle{Index: 1, Generation: 1}
	recycled := actor.BodyHandle{Index: 1, Generation: 2}
	b := actor.BodyHandle{Index: 2, Generation: 1}

	if makePairKey(a, b) == makePairKey(recycled, b) {
		t.Error("a recycled slot must not share the pair of its predecessor")
	}
}

// =============================================================================
// Contact Events Tests
// =============================================================================

func TestEvents_ContactEnterExit(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body, ground := createTestBody(1, false), createTestBody(0, false)

	tests := []struct {
		name      string
		touching  bool
		wantEnter int
		wantExit  int
	}{
		{"first touch", true, 1, 0},
		{"still touching", true, 0, 0},
		{"separated", false, 0, 1},
		{"still apart", false, 0, 0},
		{"touch again", true, 1, 0},
	}

	for _, tt := range tests {
		capture.reset()
		if tt.touching {
			events.recordContact(body, ground)
		}
		events.processContactEvents()
		events.flush()

		if got := capture.count(CONTACT_ENTER); got != tt.wantEnter {
			t.Errorf("%s: %d enter events, want %d", tt.name, got, tt.wantEnter)
		}
		if got := capture.count(CONTACT_EXIT); got != tt.wantExit {
			t.Errorf("%s: %d exit events, want %d", tt.name, got, tt.wantExit)
		}
	}
}

func TestEvents_RecordContactReportsPreviousState(t *testing.T) {
	events := NewEvents()
	body, ground := createTestBody(1, false), createTestBody(0, false)

	if events.recordContact(body, ground) {
		t.Error("a new pair was not touching before")
	}
	events.processContactEvents()
	if !events.recordContact(body, ground) {
		t.Error("the pair was touching in the previous step")
	}
}

func TestEvents_ContactEnterCarriesBodies(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body, ground := createTestBody(4, false), createTestBody(2, false)
	events.recordContact(body, ground)
	events.processContactEvents()
	events.flush()

	if len(capture.events) != 1 {
		t.Fatalf("got %d events, want 1", len(capture.events))
	}
	enter := capture.events[0].(ContactEnterEvent)
	if enter.BodyA != body || enter.BodyB != ground {
		t.Error("enter event should carry the bodies in the recorded order")
	}
}

func TestEvents_ContactOrder(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	ground := createTestBody(0, false)
	bodies := []*actor.RigidBody{
		createTestBody(7, false),
		createTestBody(3, false),
		createTestBody(9, false),
		createTestBody(1, false),
		createTestBody(5, false),
	}
	want := []uint32{1, 3, 5, 7, 9}

	for _, body := range bodies {
		events.recordContact(body, ground)
	}
	events.processContactEvents()
	events.processContactEvents()
	events.flush()

	if len(capture.events) != 2*len(bodies) {
		t.Fatalf("got %d events, want %d", len(capture.events), 2*len(bodies))
	}
	for i, event := range capture.events {
		var body *actor.RigidBody
		switch e := event.(type) {
		case ContactEnterEvent:
			body = e.BodyA
		case ContactExitEvent:
			body = e.BodyA
		}
		if got := body.Handle().Index; got != want[i%len(want)] {
			t.Errorf("event %d is for slot %d, want %d", i, got, want[i%len(want)])
		}
	}
	if capture.count(CONTACT_ENTER) != len(bodies) || capture.events[0].Type() != CONTACT_ENTER {
		t.Error("enter events should come first, one per pair")
	}
}

func TestEvents_ForgetDropsPairsWithoutExit(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body, ground := createTestBody(1, false), createTestBody(0, false)
	events.recordContact(body, ground)
	events.processContactEvents()
	events.processSleepEvents([]*actor.RigidBody{body})
	events.flush()
	capture.reset()

	events.forget(body)
	events.processContactEvents()
	events.flush()

	if len(capture.events) != 0 {
		t.Errorf("a removed body should not produce events, got %d", len(capture.events))
	}
	if _, ok := events.sleepStates[body]; ok {
		t.Error("sleep state should be dropped")
	}
}

// =============================================================================
// Sleep/Wake Events Tests
// =============================================================================

func TestEvents_SleepWake(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body := createTestBody(0, false)
	bodies := []*actor.RigidBody{body}

	tests := []struct {
		name      string
		sleeping  bool
		wantSleep int
		wantWake  int
	}{
		{"first sight is not an event", false, 0, 0},
		{"still awake", false, 0, 0},
		{"falls asleep", true, 1, 0},
		{"still asleep", true, 0, 0},
		{"wakes", false, 0, 1},
	}

	for _, tt := range tests {
		capture.reset()
		body.IsSleeping = tt.sleeping
		events.processSleepEvents(bodies)
		events.flush()

		if got := capture.count(ON_SLEEP); got != tt.wantSleep {
			t.Errorf("%s: %d sleep events, want %d", tt.name, got, tt.wantSleep)
		}
		if got := capture.count(ON_WAKE); got != tt.wantWake {
			t.Errorf("%s: %d wake events, want %d", tt.name, got, tt.wantWake)
		}
	}
}

// =============================================================================
// Limit Hit Tests
// =============================================================================

func TestEvents_LimitHit(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	hinge := constraint.NewHinge(actor.NewTransformFrom(mgl64.Vec3{}, mgl64.QuatIdent()), createTestBody(0, false), nil)
	events.emitLimitHit(hinge, 5)
	events.flush()

	if capture.count(LIMIT_HIT) != 1 {
		t.Fatalf("got %d limit hit events, want 1", capture.count(LIMIT_HIT))
	}
	hit := capture.events[0].(LimitHitEvent)
	if hit.Joint != constraint.Joint(hinge) || hit.Axis != 5 {
		t.Errorf("hit = %+v", hit)
	}
}
