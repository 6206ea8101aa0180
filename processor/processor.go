// Package processor implements the Tomasulo-style orchestrator
// described in spec.md §5: a decoder, a register file, a shared
// result bus, an ordered collection of arithmetic and memory-access
// functional units, and the fixed per-cycle phase ordering that holds
// all of their interactions together. Grounded on
// original_source/src/core/processor.rs.
package processor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/archsim/tomasim/arith"
	"github.com/archsim/tomasim/core"
	"github.com/archsim/tomasim/decode"
	"github.com/archsim/tomasim/latency"
	"github.com/archsim/tomasim/mem"
	"github.com/archsim/tomasim/memunit"
	"github.com/archsim/tomasim/nop"
)

// unit is the subset of a functional unit's behavior the processor
// depends on, satisfied by both arith.Unit and memunit.Unit (and the
// built-in nop.Unit).
type unit interface {
	Name() string
	TryIssue(opcode string, args []core.ArgState) (core.Tag, bool)
	Forward(tag core.Tag, val uint32)
	Advance(bus *core.ResultBus) error
	Pending() int
	IsIdle() bool
	Snapshot() []string
}

// accessUnit additionally speaks the memory-bus request/response
// protocol. Only memunit.Unit implements this.
type accessUnit interface {
	unit
	RequestBusAccess() (mem.Request, bool)
	DeliverBusResponse(logical int, resp mem.Response)
}

// Processor is the orchestrator. Units are kept in an ordered slice
// (registration order), never a map, so iteration order — and
// therefore the tie-breaker for simultaneously-finishing units — is
// deterministic, per SPEC_FULL.md §16.
type Processor struct {
	pc int

	decoder *decode.Decoder
	regs    *core.RegFile
	bus     *core.ResultBus
	factory *UnitFactory

	units       []unit
	accessUnits []accessUnit
	unitByName  map[string]unit
	accessByName map[string]accessUnit

	busQueue []mem.Request

	lastInstruction string
}

// New returns a Processor with only the built-in nop unit registered.
func New() *Processor {
	p := &Processor{
		decoder:      decode.New(),
		regs:         core.NewRegFile(),
		bus:          core.NewResultBus(),
		factory:      NewUnitFactory(),
		unitByName:   make(map[string]unit),
		accessByName: make(map[string]accessUnit),
	}

	n := nop.New()
	if err := p.decoder.Register(nop.Formats(), n.Name()); err != nil {
		panic(fmt.Sprintf("processor: failed to register the built-in nop unit: %v", err))
	}
	p.units = append(p.units, n)
	p.unitByName[n.Name()] = n
	return p
}

// AddArithUnit registers a new arithmetic unit with the given station
// capacity and latency table, wiring its formats into the decoder. It
// returns the unit's assigned name.
func (p *Processor) AddArithUnit(capacity int, table *latency.Table) (string, error) {
	name := p.factory.NextArithName()
	u := arith.New(name, capacity, table)
	if err := p.decoder.Register(arith.Formats(), name); err != nil {
		return "", fmt.Errorf("processor: failed to register arithmetic unit %q: %w", name, err)
	}
	p.units = append(p.units, u)
	p.unitByName[name] = u
	return name, nil
}

// AddAccessUnit registers a new memory-access unit, wiring its
// formats into the decoder. It returns the unit's assigned name.
func (p *Processor) AddAccessUnit() (string, error) {
	name := p.factory.NextMemName()
	u := memunit.New(name)
	if err := p.decoder.Register(memunit.Formats(), name); err != nil {
		return "", fmt.Errorf("processor: failed to register access unit %q: %w", name, err)
	}
	p.units = append(p.units, u)
	p.accessUnits = append(p.accessUnits, u)
	p.unitByName[name] = u
	p.accessByName[name] = u
	return name, nil
}

// FetchAddress returns the current program counter.
func (p *Processor) FetchAddress() int { return p.pc }

// commit drains the result bus (if it holds a value), broadcasting it
// to every unit and into the register file. It returns an error if
// the result carried a bus-level fault (spec.md §7's BusError),
// forwarding first so dependents still resolve before the step
// aborts.
func (p *Processor) commit() error {
	tag, result, ok := p.bus.Take()
	if !ok {
		return nil
	}

	for _, u := range p.units {
		u.Forward(tag, result.Value)
	}
	p.regs.Write(tag, result.Value)

	if result.Kind == core.ResultErr {
		return fmt.Errorf("processor: bus error on %s: %s", tag, result.Err)
	}
	return nil
}

// advance ticks every unit once, then lets every access unit place at
// most one new request on the bus-access queue.
func (p *Processor) advance() error {
	for _, u := range p.units {
		if err := u.Advance(p.bus); err != nil {
			return fmt.Errorf("processor: %s: %w", u.Name(), err)
		}
	}
	for _, au := range p.accessUnits {
		if req, ok := au.RequestBusAccess(); ok {
			p.busQueue = append(p.busQueue, req)
		}
	}
	return nil
}

// tryIssue offers (opcode, args) to every station named in stations,
// trying the least-pending station first so independent instructions
// spread across parallel units instead of piling onto the first one
// listed.
func (p *Processor) tryIssue(stations []string, opcode string, args []core.ArgState) (core.Tag, bool) {
	type candidate struct {
		u       unit
		pending int
	}
	candidates := make([]candidate, 0, len(stations))
	for _, name := range stations {
		if u, ok := p.unitByName[name]; ok {
			candidates = append(candidates, candidate{u: u, pending: u.Pending()})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].pending < candidates[j].pending })

	for _, c := range candidates {
		if tag, ok := c.u.TryIssue(opcode, args); ok {
			return tag, true
		}
	}
	return core.Tag{}, false
}

// fetchDecodeIssue decodes rawInst, renames its arguments against the
// current register file, and attempts to issue it. A structural stall
// (no station had room) leaves the PC untouched; a decode error is a
// real error per spec.md §7.
func (p *Processor) fetchDecodeIssue(rawInst string) error {
	decoded, err := p.decoder.Decode(rawInst)
	if err != nil {
		return fmt.Errorf("processor: decode: %w", err)
	}
	p.lastInstruction = rawInst

	renamed := make([]core.ArgState, len(decoded.Args))
	for i, a := range decoded.Args {
		switch a.Kind {
		case decode.ArgReg:
			renamed[i] = p.regs.Read(a.Reg)
		case decode.ArgImm:
			renamed[i] = core.Ready(a.Imm)
		}
	}

	tag, issued := p.tryIssue(decoded.Stations, decoded.Opcode, renamed)
	if !issued {
		return nil // structural stall: PC does not advance
	}
	p.pc++

	if decoded.Writeback != nil {
		p.regs.Rename(*decoded.Writeback, tag)
	}
	return nil
}

// Step advances the processor by exactly one cycle: commit, then
// advance every unit, then fetch/decode/issue rawInst. This ordering
// is load-bearing (SPEC_FULL.md §5): an instruction issued this cycle
// cannot begin executing until the next.
func (p *Processor) Step(rawInst string) error {
	if err := p.commit(); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	return p.fetchDecodeIssue(rawInst)
}

// PopBusRequest removes and returns the oldest queued memory-bus
// request, or (_, false) if none is queued. The caller is responsible
// for servicing it and eventually calling DeliverBusResponse.
func (p *Processor) PopBusRequest() (mem.Request, bool) {
	if len(p.busQueue) == 0 {
		return mem.Request{}, false
	}
	req := p.busQueue[0]
	p.busQueue = p.busQueue[1:]
	return req, true
}

// DeliverBusResponse routes a completed bus transaction back to the
// access unit named by path, to be placed on the result bus on a
// future Advance.
func (p *Processor) DeliverBusResponse(path string, slot int, resp mem.Response) error {
	au, ok := p.accessByName[path]
	if !ok {
		return fmt.Errorf("processor: no access unit named %q", path)
	}
	au.DeliverBusResponse(slot, resp)
	return nil
}

// IsIdle reports whether every unit is idle and the result bus holds
// no pending writeback.
func (p *Processor) IsIdle() bool {
	for _, u := range p.units {
		if !u.IsIdle() {
			return false
		}
	}
	return p.bus.IsFree()
}

// PeekRegisters returns a snapshot of the register file's current
// ArgStates, for test assertions and display.
func (p *Processor) PeekRegisters() [core.RegCount]core.ArgState {
	return p.regs.Snapshot()
}

// Snapshot returns a human-readable dump of the processor's state:
// the last-fetched instruction, the registers, every unit, and the
// bus-access queue's depth. The result bus is not included. This is the data Processor.Snapshot() exposes in
// place of the original's live terminal renderer (SPEC_FULL.md §14) —
// a driver can print it, diff it, or ignore it.
func (p *Processor) Snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PC: %d\n", p.pc)
	fmt.Fprintf(&b, "last instruction: %s\n", p.lastInstruction)

	regs := p.regs.Snapshot()
	for i, r := range regs {
		fmt.Fprintf(&b, "R%d: %s\n", i, r)
	}

	for _, u := range p.units {
		for _, line := range u.Snapshot() {
			fmt.Fprintln(&b, line)
		}
	}

	fmt.Fprintf(&b, "bus queue depth: %d\n", len(p.busQueue))
	return b.String()
}
