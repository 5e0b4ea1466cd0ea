package stream

import "github.com/akmonengine/ligament/actor"

const (
	MessageTypeInfo     = "info"
	MessageTypeSnapshot = "snapshot"
)

// InfoMessage is sent once to every new client
type InfoMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BodyState is the pose and velocity of one dynamic body
type BodyState struct {
	ID       uint32     `json:"id"`
	Position [3]float64 `json:"position"`
	// Rotation is a unit quaternion, w first
	Rotation [4]float64 `json:"rotation"`
	Velocity [3]float64 `json:"velocity"`
	Omega    [3]float64 `json:"omega"`
	Sleeping bool       `json:"sleeping,omitempty"`
}

// Snapshot is the state of the world after one step
type Snapshot struct {
	Type   string      `json:"type"`
	Step   uint64      `json:"step"`
	Time   float64     `json:"time"`
	Bodies []BodyState `json:"bodies"`
}

// Capture copies the state of the dynamic bodies. Static bodies never move and are skipped.
func Capture(step uint64, time float64, bodies []*actor.RigidBody) Snapshot {
	snapshot := Snapshot{
		Type:   MessageTypeSnapshot,
		Step:   step,
		Time:   time,
		Bodies: make([]BodyState, 0, len(bodies)),
	}
	for _, body := range bodies {
		if body.IsStatic() {
			continue
		}
		q := body.Transform.Rotation
		snapshot.Bodies = append(snapshot.Bodies, BodyState{
			ID:       body.ID,
			Position: body.Transform.Position,
			Rotation: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
			Velocity: body.Velocity,
			Omega:    body.AngularVelocity,
			Sleeping: body.IsSleeping,
		})
	}
	return snapshot
}
