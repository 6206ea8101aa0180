// Package rs implements the generic reservation station described in
// spec.md §4.3: a fixed-size array of slots, each holding either
// nothing, a reserved-but-unfilled placeholder, a pending instruction,
// or an executing one.
package rs

import (
	"fmt"

	"github.com/archsim/tomasim/core"
)

// SlotState is the lifecycle state of one reservation-station slot.
type SlotState uint8

const (
	// Empty holds no instruction.
	Empty SlotState = iota
	// Reserved holds a slot set aside by Reserve but not yet filled by
	// InsertIntoReserved.
	Reserved
	// Pending holds an issued instruction not yet executing.
	Pending
	// Executing holds an instruction that has started execution but
	// has not yet been resolved by its own tag appearing on the bus.
	Executing
)

type slot struct {
	state SlotState
	inst  core.RenamedInst
	// justIssued marks a slot that became Pending during the current
	// cycle's issue phase. Ready() skips these slots; the guard is
	// cleared at the start of the next cycle's Advance, per
	// SPEC_FULL.md §16 (an instruction issued on cycle k may not reach
	// execution within cycle k, since commit+advance run before issue).
	justIssued bool
}

// Station is a fixed-capacity array of reservation-station slots.
type Station struct {
	slots []slot
}

// New returns a station with the given slot capacity.
func New(capacity int) *Station {
	return &Station{slots: make([]slot, capacity)}
}

// Capacity returns the number of slots in the station.
func (s *Station) Capacity() int {
	return len(s.slots)
}

// BeginCycle clears the just-issued guard on every slot. Each
// functional unit calls this for its own stations at the very start of
// its Advance, before anything else touches the station this cycle.
func (s *Station) BeginCycle() {
	for i := range s.slots {
		s.slots[i].justIssued = false
	}
}

func (s *Station) firstEmpty() int {
	for i, sl := range s.slots {
		if sl.state == Empty {
			return i
		}
	}
	return -1
}

// Insert places inst into the first Empty slot as Pending and returns
// its index, or returns (-1, false) if the station is full.
func (s *Station) Insert(inst core.RenamedInst) (int, bool) {
	idx := s.firstEmpty()
	if idx < 0 {
		return -1, false
	}
	s.slots[idx] = slot{state: Pending, inst: inst, justIssued: true}
	return idx, true
}

// Reserve places Reserved into the first Empty slot and returns its
// index, or (-1, false) if the station is full. The caller later fills
// the slot with InsertIntoReserved once the instruction is fully
// formed (used by the memory unit to hold a slot while the address is
// still being evaluated).
func (s *Station) Reserve() (int, bool) {
	idx := s.firstEmpty()
	if idx < 0 {
		return -1, false
	}
	s.slots[idx] = slot{state: Reserved}
	return idx, true
}

// InsertIntoReserved fills a previously Reserved slot with inst,
// transitioning it to Pending. It errors if idx is out of range or the
// slot is not currently Reserved.
func (s *Station) InsertIntoReserved(inst core.RenamedInst, idx int) error {
	if idx < 0 || idx >= len(s.slots) {
		return fmt.Errorf("rs: slot %d out of range (capacity %d)", idx, len(s.slots))
	}
	if s.slots[idx].state != Reserved {
		return fmt.Errorf("rs: slot %d is not reserved", idx)
	}
	s.slots[idx] = slot{state: Pending, inst: inst, justIssued: true}
	return nil
}

// Ready returns the index of the first Pending, not-just-issued slot
// whose instruction reports itself ready, or (-1, false) if none
// qualifies.
func (s *Station) Ready() (int, bool) {
	for i, sl := range s.slots {
		if sl.state == Pending && !sl.justIssued && sl.inst.IsReady() {
			return i, true
		}
	}
	return -1, false
}

// StartExecute transitions slot idx from Pending to Executing. It
// errors if the slot is not Pending.
func (s *Station) StartExecute(idx int) error {
	if idx < 0 || idx >= len(s.slots) {
		return fmt.Errorf("rs: slot %d out of range (capacity %d)", idx, len(s.slots))
	}
	if s.slots[idx].state != Pending {
		return fmt.Errorf("rs: slot %d is not pending", idx)
	}
	s.slots[idx].state = Executing
	return nil
}

// Resolve transitions slot idx to Empty, freeing it. Called once the
// slot's own tag has been observed coming back off the result bus.
func (s *Station) Resolve(idx int) {
	if idx < 0 || idx >= len(s.slots) {
		return
	}
	s.slots[idx] = slot{}
}

// Forward delivers (tag, val) to every Pending slot's instruction.
// Executing slots are untouched: their argument values were already
// captured at execute time.
func (s *Station) Forward(tag core.Tag, val uint32) {
	for i := range s.slots {
		if s.slots[i].state == Pending {
			s.slots[i].inst.Forward(tag, val)
		}
	}
}

// Inst returns the instruction occupying idx, or nil if the slot holds
// none (Empty or out of range).
func (s *Station) Inst(idx int) core.RenamedInst {
	if idx < 0 || idx >= len(s.slots) {
		return nil
	}
	return s.slots[idx].inst
}

// State returns the lifecycle state of slot idx.
func (s *Station) State(idx int) SlotState {
	if idx < 0 || idx >= len(s.slots) {
		return Empty
	}
	return s.slots[idx].state
}

// PendingCount returns the number of slots in Pending or Executing
// state, i.e. the occupied slots minus Reserved placeholders, which
// hold no instruction yet. See OccupiedCount for the
// Reserved-inclusive total.
func (s *Station) PendingCount() int {
	n := 0
	for _, sl := range s.slots {
		if sl.state == Pending || sl.state == Executing {
			n++
		}
	}
	return n
}

// OccupiedCount returns the number of non-Empty slots, including
// Reserved placeholders.
func (s *Station) OccupiedCount() int {
	n := 0
	for _, sl := range s.slots {
		if sl.state != Empty {
			n++
		}
	}
	return n
}

// IsFull reports whether every slot is non-Empty.
func (s *Station) IsFull() bool {
	return s.OccupiedCount() == len(s.slots)
}

// Snapshot returns a human-readable line per slot, in index order.
func (s *Station) Snapshot() []string {
	out := make([]string, len(s.slots))
	for i, sl := range s.slots {
		switch sl.state {
		case Empty:
			out[i] = "Empty"
		case Reserved:
			out[i] = "Reserved"
		case Pending:
			out[i] = fmt.Sprintf("Pend(%s)", sl.inst.Name())
		case Executing:
			out[i] = fmt.Sprintf("Exec(%s)", sl.inst.Name())
		}
	}
	return out
}

// Each calls fn for every Pending or Executing slot, passing its index
// and instruction. Used by the memory unit's dependency scan, which
// needs to inspect sibling stations' live instructions.
func (s *Station) Each(fn func(idx int, inst core.RenamedInst, state SlotState)) {
	for i, sl := range s.slots {
		if sl.state == Pending || sl.state == Executing {
			fn(i, sl.inst, sl.state)
		}
	}
}
