package arith

import (
	"testing"

	"github.com/archsim/tomasim/core"
	"github.com/archsim/tomasim/latency"
)

func TestTryIssueAndExecuteAdd(t *testing.T) {
	u := New("arith0", DefaultCapacity, latency.NewTable())
	bus := core.NewResultBus()

	tag, ok := u.TryIssue("add", []core.ArgState{core.Ready(3), core.Ready(4)})
	if !ok {
		t.Fatalf("TryIssue should succeed")
	}

	// Cycle 1: guard clears, slot becomes selectable, execution begins.
	if err := u.Advance(bus); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, _, ok := bus.Take(); ok {
		t.Fatalf("bus should still be empty right after execution starts")
	}

	// Cycle 2: 1-cycle add finishes and writes the bus.
	if err := u.Advance(bus); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	gotTag, result, ok := bus.Take()
	if !ok || gotTag != tag || result.Value != 7 {
		t.Fatalf("want (%v, 7), got (%v, %v, %v)", tag, gotTag, result, ok)
	}
}

func TestTryIssueFailsWhenStationFull(t *testing.T) {
	u := New("arith0", 1, latency.NewTable())
	if _, ok := u.TryIssue("add", []core.ArgState{core.Ready(1), core.Ready(2)}); !ok {
		t.Fatalf("first issue should succeed")
	}
	if _, ok := u.TryIssue("add", []core.ArgState{core.Ready(1), core.Ready(2)}); ok {
		t.Fatalf("second issue into a full station should fail")
	}
}

func TestForwardResolvesWaitingArgument(t *testing.T) {
	u := New("arith0", DefaultCapacity, latency.NewTable())
	waitTag := core.NewTag("arith1", 0)

	_, ok := u.TryIssue("add", []core.ArgState{core.Waiting(waitTag), core.Ready(10)})
	if !ok {
		t.Fatalf("TryIssue should succeed")
	}

	bus := core.NewResultBus()
	u.Advance(bus) // guard clears, but argument still waiting so nothing starts

	u.Forward(waitTag, 5)

	if err := u.Advance(bus); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := u.Advance(bus); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	_, result, ok := bus.Take()
	if !ok || result.Value != 15 {
		t.Fatalf("want 15, got %v ok=%v", result, ok)
	}
}

func TestBusContentionStallsWriteback(t *testing.T) {
	u := New("arith0", DefaultCapacity, latency.NewTable())
	bus := core.NewResultBus()

	tag, _ := u.TryIssue("add", []core.ArgState{core.Ready(1), core.Ready(1)})
	u.Advance(bus) // starts executing

	// Occupy the bus with someone else right before our unit would write.
	other := core.NewTag("arith1", 0)
	bus.Set(other, core.ArithResult(999))

	if err := u.Advance(bus); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	gotTag, _, _ := bus.Take()
	if gotTag != other {
		t.Fatalf("the contending writer should have kept the bus this cycle")
	}
	if u.IsIdle() {
		t.Fatalf("unit should still hold its finished result, retrying next cycle")
	}

	if err := u.Advance(bus); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	gotTag, result, ok := bus.Take()
	if !ok || gotTag != tag || result.Value != 2 {
		t.Fatalf("want our unit to win the bus this cycle: got (%v,%v,%v)", gotTag, result, ok)
	}
}

func TestIsIdle(t *testing.T) {
	u := New("arith0", DefaultCapacity, latency.NewTable())
	if !u.IsIdle() {
		t.Fatalf("a fresh unit should be idle")
	}
	u.TryIssue("add", []core.ArgState{core.Ready(1), core.Ready(1)})
	if u.IsIdle() {
		t.Fatalf("a unit holding a pending instruction is not idle")
	}
}
