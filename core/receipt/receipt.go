// Package receipt projects an order snapshot onto the user-visible receipt
// fields. Rendering is a pure function of the snapshot.
package receipt

import (
	"strings"

	"github.com/baristalabs/barista-core/core/order"
)

// Placeholder is shown for fields the backend has not filled in yet.
const Placeholder = "-"

// Receipt is the rendered, display-ready projection of an order snapshot.
type Receipt struct {
	Drink  string
	Size   string
	Milk   string
	Name   string
	Extras string
}

// Render projects a snapshot onto receipt fields. Unknown fields render as
// the placeholder; extras render as a comma-joined list or an explicit None
// marker so the display never shows a blank line.
func Render(snapshot order.Snapshot) Receipt {
	return Receipt{
		Drink:  orPlaceholder(snapshot.DrinkType),
		Size:   orPlaceholder(snapshot.Size),
		Milk:   orPlaceholder(snapshot.Milk),
		Name:   orPlaceholder(snapshot.Name),
		Extras: renderExtras(snapshot.Extras),
	}
}

func orPlaceholder(value string) string {
	if value == "" {
		return Placeholder
	}
	return value
}

func renderExtras(extras []string) string {
	if len(extras) == 0 {
		return "Extras: None"
	}
	return "Extras: " + strings.Join(extras, ", ")
}
