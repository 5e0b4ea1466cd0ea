package ligament

import (
	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/constraint"
)

// planeContact is one contact point between a dynamic body and a static plane body
type planeContact struct {
	planeBody *actor.RigidBody
	point     constraint.ContactPoint
}

// collidePlane returns the points of the body feature facing the plane that lie below it, or
// within slop above it. The normal is the plane normal, pointing from the plane toward the body.
func collidePlane(object, planeBody *actor.RigidBody, plane *actor.Plane, slop float64) []constraint.ContactPoint {
	contactNormal := plane.Normal.Normalize()
	origin := planeBody.Transform.Position

	deepest := object.SupportWorld(contactNormal.Mul(-1))
	if plane.SignedDistance(origin, deepest) > slop {
		return nil
	}

	localDirection := object.Transform.InverseRotation.Rotate(contactNormal.Mul(-1))
	feature := object.Shape.ContactFeature(localDirection)

	points := make([]constraint.ContactPoint, 0, len(feature))
	for _, vertex := range feature {
		position := object.Transform.TransformPoint(vertex)
		distance := plane.SignedDistance(origin, position)
		if distance > slop {
			continue
		}
		points = append(points, constraint.ContactPoint{
			Position: position,
			Normal:   contactNormal,
			Depth:    -distance,
		})
	}
	return points
}

// collide generates the contacts of every dynamic body against the static planes, attaches them
// to the awake islands and records the touching pairs for the contact events. A body that starts
// touching a plane wakes its island.
func (w *World) collide(bodies []*actor.RigidBody) {
	for _, island := range w.islands {
		island.ClearContacts()
	}

	var planes []*actor.RigidBody
	for _, body := range bodies {
		if _, ok := body.Shape.(*actor.Plane); ok && body.IsStatic() {
			planes = append(planes, body)
		}
	}
	if len(planes) > 0 {
		slop := w.Config.Solver.ContactSlop
		contacts := make([][]planeContact, len(bodies))
		task(w.Config.Solver.Workers, bodies, func(i int, object *actor.RigidBody) {
			if object.IsStatic() {
				return
			}
			for _, planeBody := range planes {
				plane := planeBody.Shape.(*actor.Plane)
				for _, point := range collidePlane(object, planeBody, plane, slop) {
					contacts[i] = append(contacts[i], planeContact{planeBody: planeBody, point: point})
				}
			}
		})

		for i, object := range bodies {
			island := w.islandOf[object.Handle()]
			var touched map[*actor.RigidBody]bool
			for _, c := range contacts[i] {
				if touched == nil {
					touched = make(map[*actor.RigidBody]bool, len(planes))
				}
				if !touched[c.planeBody] {
					touched[c.planeBody] = true
					wasTouching := w.Events.recordContact(object, c.planeBody)
					if !wasTouching && island != nil && island.IsSleeping() {
						island.Wake()
					}
				}
			}
			if island == nil || island.IsSleeping() {
				continue
			}
			for _, c := range contacts[i] {
				contact := constraint.NewContact(object, c.planeBody, c.point)
				island.AddContact(contact, object, c.planeBody)
			}
		}
	}
	w.Events.processContactEvents()
}

// Contacts returns the contacts solved in the last step, in island order
func (w *World) Contacts() []*constraint.Contact {
	w.wait()
	var contacts []*constraint.Contact
	for _, island := range w.islands {
		for _, link := range island.Contacts {
			if contact, ok := link.Joint.(*constraint.Contact); ok {
				contacts = append(contacts, contact)
			}
		}
	}
	return contacts
}
