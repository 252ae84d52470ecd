// Package order holds the backend-authoritative description of an in-progress
// drink order.
//
// The backend owns order semantics; the client never merges fields. Each
// voice-turn response either carries a complete replacement snapshot or no
// snapshot at all.
package order

import (
	"github.com/jinzhu/copier"
)

// Snapshot is the last known state of the order as reported by the backend.
//
// String fields use the empty string for "not yet known"; the backend sends
// null for those on the wire. IsComplete defaults to false and flips true
// exactly once, when the backend considers the order placed.
type Snapshot struct {
	DrinkType string
	Size      string
	Milk      string
	Extras    []string
	Name      string

	IsComplete bool
}

// Empty returns the snapshot used at conversation start, before the backend
// has reported anything.
func Empty() Snapshot {
	return Snapshot{Extras: []string{}}
}

// Clone returns a deep copy so callers can hand the snapshot to renderers and
// transports without aliasing the controller-owned value.
func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{}
	if err := copier.CopyWithOption(&clone, &s, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on invalid to/from arguments, which cannot
		// happen for two addressable Snapshot values.
		return s
	}
	if clone.Extras == nil {
		clone.Extras = []string{}
	}
	return clone
}
