// Package arith implements the arithmetic functional unit described
// in spec.md §4.4: a reservation station plus a single execution
// stage with a per-opcode cycle latency, driving its result onto the
// shared result bus. Grounded on
// original_source/src/functional_units/arithmetic_unit.rs.
package arith

import (
	"fmt"

	"github.com/archsim/tomasim/core"
	"github.com/archsim/tomasim/decode"
	"github.com/archsim/tomasim/latency"
	"github.com/archsim/tomasim/rs"
)

// DefaultCapacity is the default reservation-station size for an
// arithmetic unit (spec.md §4.4 calls for "small (2-5)").
const DefaultCapacity = 2

// inst is the renamed form of an add/addi/mul/muli instruction: an
// opcode name and two arguments, each possibly still waiting.
type inst struct {
	name string
	a, b core.ArgState
}

func newInst(name string, args []core.ArgState) (*inst, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("arith: %q expects 2 arguments, got %d", name, len(args))
	}
	return &inst{name: name, a: args[0], b: args[1]}, nil
}

func (i *inst) Name() string              { return i.name }
func (i *inst) Arguments() []core.ArgState { return []core.ArgState{i.a, i.b} }
func (i *inst) IsReady() bool              { return i.a.IsReady() && i.b.IsReady() }
func (i *inst) Forward(tag core.Tag, val uint32) {
	i.a.Forward(tag, val)
	i.b.Forward(tag, val)
}

// execStage is the single in-flight execution holding a precomputed
// result and a countdown to its writeback cycle.
type execStage struct {
	tag    core.Tag
	remain uint64
	result uint32
}

// Unit is one arithmetic functional unit (e.g. "arith0").
type Unit struct {
	name    string
	station *rs.Station
	table   *latency.Table
	exec    *execStage
}

// New returns a new arithmetic unit named name with the given station
// capacity and latency table.
func New(name string, capacity int, table *latency.Table) *Unit {
	return &Unit{
		name:    name,
		station: rs.New(capacity),
		table:   table,
	}
}

// Name returns the unit's station name, used as the tag namespace.
func (u *Unit) Name() string { return u.name }

// Formats lists the instruction formats this unit implements, for
// registration with the decoder.
func Formats() []decode.Format {
	return []decode.Format{
		decode.NewFormat("add", decode.Writeback, decode.Register, decode.Register),
		decode.NewFormat("addi", decode.Writeback, decode.Register, decode.Immediate),
		decode.NewFormat("mul", decode.Writeback, decode.Register, decode.Register),
		decode.NewFormat("muli", decode.Writeback, decode.Register, decode.Immediate),
	}
}

// TryIssue attempts to insert a new instruction into the station.
// renamedArgs are the two operand ArgStates in program order.
func (u *Unit) TryIssue(opcode string, renamedArgs []core.ArgState) (core.Tag, bool) {
	occupant, err := newInst(opcode, renamedArgs)
	if err != nil {
		return core.Tag{}, false
	}
	idx, ok := u.station.Insert(occupant)
	if !ok {
		return core.Tag{}, false
	}
	return core.NewTag(u.name, idx), true
}

// Forward delivers a bus broadcast to this unit: if the tag names one
// of our own slots, that slot resolves (Executing -> Empty); in all
// cases the value is also forwarded into every Pending slot's
// arguments.
func (u *Unit) Forward(tag core.Tag, val uint32) {
	if tag.Station == u.name {
		u.station.Resolve(tag.Slot)
	}
	u.station.Forward(tag, val)
}

// Advance performs one cycle's work: tick the execution stage (and
// attempt its writeback), then, if the stage is free, pull a newly
// ready instruction out of the station to begin executing.
func (u *Unit) Advance(bus *core.ResultBus) error {
	u.station.BeginCycle()

	if u.exec != nil {
		if u.exec.remain > 0 {
			u.exec.remain--
		}
		if u.exec.remain == 0 {
			if bus.Set(u.exec.tag, core.ArithResult(u.exec.result)) {
				u.exec = nil
			}
			// else: bus contended this cycle, stage holds its
			// finished result and retries the Set next cycle.
		}
	}

	if u.exec == nil {
		if idx, ok := u.station.Ready(); ok {
			if err := u.startExecute(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *Unit) startExecute(idx int) error {
	occupant := u.station.Inst(idx)
	renamed, ok := occupant.(*inst)
	if !ok || renamed == nil {
		return fmt.Errorf("arith: slot %d holds no instruction", idx)
	}
	a, aok := renamed.a.Val()
	b, bok := renamed.b.Val()
	if !aok || !bok {
		return fmt.Errorf("arith: slot %d selected ready but an argument is not resolved", idx)
	}

	cycles, ok := u.table.Cycles(renamed.name)
	if !ok {
		return fmt.Errorf("arith: no latency entry for opcode %q", renamed.name)
	}

	var result uint32
	switch renamed.name {
	case "add", "addi":
		result = a + b
	case "mul", "muli":
		result = a * b
	default:
		return fmt.Errorf("arith: unsupported opcode %q reached execution", renamed.name)
	}

	if err := u.station.StartExecute(idx); err != nil {
		return err
	}
	u.exec = &execStage{
		tag:    core.NewTag(u.name, idx),
		remain: cycles,
		result: result,
	}
	return nil
}

// Pending returns the station's pending-instruction count, used by
// the processor to load-balance issue across candidate stations.
func (u *Unit) Pending() int { return u.station.PendingCount() }

// IsIdle reports whether the unit holds no pending or executing
// instruction.
func (u *Unit) IsIdle() bool {
	return u.station.OccupiedCount() == 0 && u.exec == nil
}

// Snapshot returns a human-readable dump of the station and the
// execution stage, for Processor.Snapshot().
func (u *Unit) Snapshot() []string {
	lines := append([]string{u.name + ":"}, u.station.Snapshot()...)
	if u.exec != nil {
		lines = append(lines, fmt.Sprintf("exec: tag=%s remain=%d", u.exec.tag, u.exec.remain))
	}
	return lines
}
