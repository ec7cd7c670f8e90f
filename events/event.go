package events

import (
	"time"

	"github.com/google/uuid"
)

type Op int

const (
	OpAdd Op = iota
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Event is one draw command sent to a map view, together with the window
// that caused it.
type Event struct {
	Timestamp time.Time
	Start     int64
	End       int64
	Op        Op
	LayerID   uuid.UUID
	FeatureID string
}

// Apply replays the event onto a set of displayed layers.
func (e Event) Apply(displayed map[uuid.UUID]string) {
	if e.Op == OpRemove {
		delete(displayed, e.LayerID)
	} else {
		displayed[e.LayerID] = e.FeatureID
	}
}

// Replay applies events in order and returns the layers left on the view.
func Replay(events []Event) map[uuid.UUID]string {
	displayed := map[uuid.UUID]string{}
	for _, e := range events {
		e.Apply(displayed)
	}
	return displayed
}
