// Package nop implements the built-in no-op functional unit spec.md
// §4.7 requires: it accepts any number of nop instructions, never
// touches the result bus or the memory bus, and is always idle. Its
// name is reserved and every Processor carries exactly one. Grounded
// on original_source/src/core/nop_unit.rs.
package nop

import (
	"github.com/archsim/tomasim/core"
	"github.com/archsim/tomasim/decode"
)

// Name is the nop unit's fixed, reserved station name.
const Name = "nop1"

// Unit is the no-op functional unit. It holds no state: every issued
// nop instruction is considered complete the instant it issues.
type Unit struct{}

// New returns a nop unit.
func New() *Unit { return &Unit{} }

// Formats lists the nop instruction format, for registration with the
// decoder.
func Formats() []decode.Format {
	return []decode.Format{decode.NewFormat("nop")}
}

func (u *Unit) Name() string { return Name }

// TryIssue always succeeds; a nop carries no arguments and never
// occupies a real reservation-station slot.
func (u *Unit) TryIssue(opcode string, args []core.ArgState) (core.Tag, bool) {
	return core.NewTag(Name, 0), true
}

func (u *Unit) Forward(tag core.Tag, val uint32) {}

func (u *Unit) Advance(bus *core.ResultBus) error { return nil }

func (u *Unit) Pending() int { return 0 }

func (u *Unit) IsIdle() bool { return true }

func (u *Unit) Snapshot() []string { return nil }
