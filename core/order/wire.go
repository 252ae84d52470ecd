package order

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// WireSnapshot is the JSON shape the backend exchanges on /chat-with-voice.
//
// Unknown string fields travel as null, and only is_complete is snake_cased;
// the casing mix is part of the backend contract, not a client choice.
type WireSnapshot struct {
	DrinkType  *string  `json:"drinkType"`
	Size       *string  `json:"size"`
	Milk       *string  `json:"milk"`
	Extras     []string `json:"extras"`
	Name       *string  `json:"name"`
	IsComplete bool     `json:"is_complete"`
}

// ToWire converts the snapshot to its wire shape, mapping empty strings back
// to JSON null.
func (s Snapshot) ToWire() WireSnapshot {
	toPtr := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}

	extras := s.Extras
	if extras == nil {
		extras = []string{}
	}

	return WireSnapshot{
		DrinkType:  toPtr(s.DrinkType),
		Size:       toPtr(s.Size),
		Milk:       toPtr(s.Milk),
		Extras:     extras,
		Name:       toPtr(s.Name),
		IsComplete: s.IsComplete,
	}
}

// FromWire converts a wire snapshot into the in-memory shape, mapping null
// fields to empty strings.
func FromWire(w WireSnapshot) Snapshot {
	fromPtr := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}

	extras := w.Extras
	if extras == nil {
		extras = []string{}
	}

	return Snapshot{
		DrinkType:  fromPtr(w.DrinkType),
		Size:       fromPtr(w.Size),
		Milk:       fromPtr(w.Milk),
		Extras:     extras,
		Name:       fromPtr(w.Name),
		IsComplete: w.IsComplete,
	}
}

// MarshalWire serializes the snapshot exactly as the backend expects it in
// the current_state form field.
func (s Snapshot) MarshalWire() ([]byte, error) {
	return json.Marshal(s.ToWire())
}

// WireSchema reflects the JSON schema of the wire contract, for contract
// inspection tooling.
func WireSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&WireSnapshot{})
}
