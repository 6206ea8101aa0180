package rs

import (
	"testing"

	"github.com/archsim/tomasim/core"
)

type instStub struct {
	name  string
	ready bool
}

func (i *instStub) Name() string              { return i.name }
func (i *instStub) Arguments() []core.ArgState { return nil }
func (i *instStub) IsReady() bool              { return i.ready }
func (i *instStub) Forward(core.Tag, uint32)   {}

func TestInsertFillsFirstEmptySlot(t *testing.T) {
	s := New(3)
	idx, ok := s.Insert(&instStub{name: "a", ready: true})
	if !ok || idx != 0 {
		t.Fatalf("want (0, true), got (%d, %v)", idx, ok)
	}
	if s.PendingCount() != 1 {
		t.Fatalf("want pending count 1, got %d", s.PendingCount())
	}
}

func TestInsertFailsWhenFull(t *testing.T) {
	s := New(1)
	if _, ok := s.Insert(&instStub{name: "a", ready: true}); !ok {
		t.Fatalf("first insert should succeed")
	}
	if _, ok := s.Insert(&instStub{name: "b", ready: true}); ok {
		t.Fatalf("second insert into a full station should fail")
	}
}

func TestJustIssuedGuardExcludesSameCycle(t *testing.T) {
	s := New(2)
	s.Insert(&instStub{name: "a", ready: true})

	if _, ok := s.Ready(); ok {
		t.Fatalf("a just-issued slot must not be selected by Ready() this cycle")
	}

	s.BeginCycle()
	idx, ok := s.Ready()
	if !ok || idx != 0 {
		t.Fatalf("after BeginCycle, the slot should be selectable: got (%d, %v)", idx, ok)
	}
}

func TestReserveThenInsertIntoReserved(t *testing.T) {
	s := New(2)
	idx, ok := s.Reserve()
	if !ok || idx != 0 {
		t.Fatalf("want (0, true), got (%d, %v)", idx, ok)
	}
	if s.State(idx) != Reserved {
		t.Fatalf("slot should be Reserved")
	}
	if s.OccupiedCount() != 1 || s.PendingCount() != 0 {
		t.Fatalf("reserved slot counts as occupied but not pending: occupied=%d pending=%d",
			s.OccupiedCount(), s.PendingCount())
	}

	if err := s.InsertIntoReserved(&instStub{name: "lw", ready: true}, idx); err != nil {
		t.Fatalf("InsertIntoReserved: %v", err)
	}
	if s.State(idx) != Pending {
		t.Fatalf("slot should be Pending after fill")
	}
}

func TestInsertIntoReservedRejectsNonReservedSlot(t *testing.T) {
	s := New(1)
	idx, _ := s.Insert(&instStub{name: "a", ready: true})
	if err := s.InsertIntoReserved(&instStub{name: "b", ready: true}, idx); err == nil {
		t.Fatalf("expected error inserting into an already-Pending slot")
	}
}

func TestStartExecuteThenResolve(t *testing.T) {
	s := New(1)
	s.Insert(&instStub{name: "a", ready: true})
	s.BeginCycle()

	if err := s.StartExecute(0); err != nil {
		t.Fatalf("StartExecute: %v", err)
	}
	if s.State(0) != Executing {
		t.Fatalf("want Executing, got %v", s.State(0))
	}

	s.Forward(core.NewTag("whatever", 9), 1) // Executing slots ignore forwards
	if s.State(0) != Executing {
		t.Fatalf("forward must not disturb an Executing slot")
	}

	s.Resolve(0)
	if s.State(0) != Empty {
		t.Fatalf("want Empty after Resolve, got %v", s.State(0))
	}
}

// forwardCountStub is an instStub that counts the forwards it receives.
type forwardCountStub struct {
	instStub
	forwards int
}

func (f *forwardCountStub) Forward(core.Tag, uint32) { f.forwards++ }

func TestForwardOnlyReachesPendingSlots(t *testing.T) {
	s := New(2)
	executing := &forwardCountStub{instStub: instStub{name: "a", ready: true}}
	pending := &forwardCountStub{instStub: instStub{name: "b", ready: false}}
	s.Insert(executing)
	s.Insert(pending)
	s.BeginCycle()
	if err := s.StartExecute(0); err != nil {
		t.Fatalf("StartExecute: %v", err)
	}

	tag := core.NewTag("arith0", 0)
	s.Forward(tag, 5)
	if pending.forwards != 1 {
		t.Fatalf("the Pending slot should receive the forward, got %d", pending.forwards)
	}
	if executing.forwards != 0 {
		t.Fatalf("the Executing slot must not receive the forward, got %d", executing.forwards)
	}
}

func TestOccupiedGreaterOrEqualPendingInvariant(t *testing.T) {
	s := New(4)
	s.Reserve()
	s.Insert(&instStub{name: "a", ready: true})
	if s.OccupiedCount() < s.PendingCount() {
		t.Fatalf("invariant violated: occupied=%d pending=%d", s.OccupiedCount(), s.PendingCount())
	}
	if s.OccupiedCount() > s.Capacity() {
		t.Fatalf("occupied exceeds capacity")
	}
}
