// Package core provides the dataflow types shared by every functional
// unit in the Tomasulo core: tags, argument states, the register file,
// and the result bus.
package core

import "fmt"

// Tag names an in-flight instruction by its issuing station and the
// slot it occupies there. Tags are the sole renaming namespace; two
// tags are equal iff both fields match.
type Tag struct {
	Station string
	Slot    int
}

// NewTag builds a tag for the given station name and slot index.
func NewTag(station string, slot int) Tag {
	return Tag{Station: station, Slot: slot}
}

// String renders a tag as "station(slot)", matching the original
// Display impl for RStag.
func (t Tag) String() string {
	return fmt.Sprintf("%s(%d)", t.Station, t.Slot)
}
