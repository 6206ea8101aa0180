// Package memunit implements the memory-access functional unit
// described in spec.md §4.5: an address-evaluation queue feeding
// separate load and store reservation stations that share one
// logical slot-id space, plus the request/response handshake with an
// external memory collaborator. Grounded on
// original_source/src/functional_units/memory_access_unit.rs.
package memunit

import (
	"fmt"

	"github.com/archsim/tomasim/core"
	"github.com/archsim/tomasim/decode"
	"github.com/archsim/tomasim/mem"
	"github.com/archsim/tomasim/rs"
)

// LoadStationSize and StoreStationSize are the default capacities of
// the two sub-stations; PendingCapacity is the evaluation queue's
// capacity, sized so a successful TryIssue (which reserves a station
// slot before queuing) can never overflow the queue.
const (
	LoadStationSize  = 4
	StoreStationSize = 4
	PendingCapacity  = LoadStationSize + StoreStationSize
)

type evalEntry struct {
	reservedSlot int
	inst         *AccessInst
}

type evalStage struct {
	remain uint64
	result uint32
}

type pendingResult struct {
	logical int
	result  core.ExecResult
}

// Unit is one memory-access functional unit (e.g. "mem0").
type Unit struct {
	name string

	evalQueue    *queue[evalEntry]
	evaluating   *evalStage
	loadStation  *rs.Station
	storeStation *rs.Station
	result       *pendingResult
}

// New returns a memory-access unit named name.
func New(name string) *Unit {
	return &Unit{
		name:         name,
		evalQueue:    newQueue[evalEntry](PendingCapacity),
		loadStation:  rs.New(LoadStationSize),
		storeStation: rs.New(StoreStationSize),
	}
}

// Name returns the unit's station name.
func (u *Unit) Name() string { return u.name }

// Formats lists the lw/sw instruction formats, for registration with
// the decoder.
func Formats() []decode.Format {
	return []decode.Format{
		decode.NewFormat("lw", decode.Writeback, decode.Register, decode.Immediate),
		decode.NewFormat("sw", decode.Register, decode.Register, decode.Immediate),
	}
}

// physicalToLogical maps a station-local physical slot index to the
// shared logical slot-id space: loads occupy [0, LoadStationSize),
// stores occupy [LoadStationSize, LoadStationSize+StoreStationSize).
func physicalToLogical(phyID int, ty AccessType) int {
	if ty == AccessStore {
		return LoadStationSize + phyID
	}
	return phyID
}

func logicalToPhysical(logicalID int) (AccessType, int) {
	if logicalID >= LoadStationSize {
		return AccessStore, logicalID - LoadStationSize
	}
	return AccessLoad, logicalID
}

func (u *Unit) stationFor(ty AccessType) *rs.Station {
	if ty == AccessStore {
		return u.storeStation
	}
	return u.loadStation
}

// TryIssue attempts to reserve a station slot and queue the
// instruction for address evaluation. renamedArgs is [base, offset]
// for a load or [value, base, offset] for a store.
func (u *Unit) TryIssue(opcode string, renamedArgs []core.ArgState) (core.Tag, bool) {
	if u.evalQueue.IsFull() {
		return core.Tag{}, false
	}
	occupant, err := newAccessInst(opcode, renamedArgs)
	if err != nil {
		return core.Tag{}, false
	}

	ty := occupant.AccessType()
	station := u.stationFor(ty)
	if station.IsFull() {
		return core.Tag{}, false
	}

	phyID, ok := station.Reserve()
	if !ok {
		return core.Tag{}, false
	}
	if !u.evalQueue.Push(evalEntry{reservedSlot: phyID, inst: occupant}) {
		return core.Tag{}, false
	}

	logical := physicalToLogical(phyID, ty)
	return core.NewTag(u.name, logical), true
}

// Forward delivers a bus broadcast to every live instruction: the
// evaluation queue, both stations, and (if the tag names one of our
// own slots) resolves that slot.
func (u *Unit) Forward(tag core.Tag, val uint32) {
	if tag.Station == u.name {
		ty, phyID := logicalToPhysical(tag.Slot)
		u.stationFor(ty).Resolve(phyID)
	}
	u.evalQueue.Each(func(_ int, e *evalEntry) { e.inst.Forward(tag, val) })
	u.loadStation.Forward(tag, val)
	u.storeStation.Forward(tag, val)
}

// dependencyCheck lists the tags of every sibling Pending or Executing
// access whose byte range overlaps [start,end). A load only conflicts
// with stores (RAW); a store conflicts with both stores (WAW) and
// loads (WAR). An access still Executing has not yet broadcast its
// result, so it is exactly as live a hazard as one still waiting in
// its station.
func (u *Unit) dependencyCheck(ty AccessType, start, end uint32) []core.Tag {
	deps := u.dependencyCheckOfStation(AccessStore, start, end)
	if ty == AccessStore {
		deps = append(deps, u.dependencyCheckOfStation(AccessLoad, start, end)...)
	}
	return deps
}

func (u *Unit) dependencyCheckOfStation(ty AccessType, start, end uint32) []core.Tag {
	var deps []core.Tag
	u.stationFor(ty).Each(func(phyID int, occupant core.RenamedInst, state rs.SlotState) {
		if state != rs.Pending && state != rs.Executing {
			return
		}
		args := occupant.Arguments()
		base := args[len(args)-1]
		val, ok := base.Val()
		if !ok {
			return
		}
		rangeStart, rangeEnd, err := accessRange(occupant.Name(), val)
		if err != nil {
			return
		}
		if overlaps(rangeStart, rangeEnd, start, end) {
			deps = append(deps, core.NewTag(u.name, physicalToLogical(phyID, ty)))
		}
	})
	return deps
}

func (u *Unit) issueEvaluatedToStation(evaluatedBase uint32) error {
	entry, ok := u.evalQueue.Pop()
	if !ok {
		return fmt.Errorf("memunit: evaluation queue empty while issuing an evaluated access")
	}

	ty, length, err := parseAccess(entry.inst.Name())
	if err != nil {
		return err
	}
	deps := u.dependencyCheck(ty, evaluatedBase, evaluatedBase+uint32(length))
	entry.inst.markEvaluated(evaluatedBase, deps)

	station := u.stationFor(ty)
	if err := station.InsertIntoReserved(entry.inst, entry.reservedSlot); err != nil {
		return err
	}
	return nil
}

// Advance performs one cycle's work: tick the evaluation stage (and
// move a finished evaluation into its station), start a new
// evaluation if the stage is free and the head of the queue is ready,
// and attempt to place a finished bus result onto the result bus.
func (u *Unit) Advance(bus *core.ResultBus) error {
	u.loadStation.BeginCycle()
	u.storeStation.BeginCycle()

	if u.evaluating != nil {
		if u.evaluating.remain > 0 {
			u.evaluating.remain--
		}
		if u.evaluating.remain == 0 {
			if err := u.issueEvaluatedToStation(u.evaluating.result); err != nil {
				return err
			}
			u.evaluating = nil
		}
	} else if head, ok := u.evalQueue.Head(); ok {
		if base, offset, ok := head.inst.readyForEvaluation(); ok {
			u.evaluating = &evalStage{remain: 1, result: base + offset}
		}
	}

	if u.result != nil {
		tag := core.NewTag(u.name, u.result.logical)
		if bus.Set(tag, u.result.result) {
			u.result = nil
		}
	}
	return nil
}

// RequestBusAccess selects the next ready access to send to the
// external memory collaborator, preferring whichever station has more
// pending work and favoring the load station on a tie (per
// SPEC_FULL.md §16). It transitions the chosen slot to Executing.
func (u *Unit) RequestBusAccess() (mem.Request, bool) {
	loadIdx, loadOK := u.loadStation.Ready()
	storeIdx, storeOK := u.storeStation.Ready()
	if !loadOK && !storeOK {
		return mem.Request{}, false
	}

	useLoad := loadOK
	if loadOK && storeOK && u.storeStation.PendingCount() > u.loadStation.PendingCount() {
		useLoad = false
	}

	ty := AccessLoad
	phyID := loadIdx
	station := u.loadStation
	if !useLoad {
		ty = AccessStore
		phyID = storeIdx
		station = u.storeStation
	}

	occupant, ok := station.Inst(phyID).(*AccessInst)
	if !ok || occupant == nil {
		return mem.Request{}, false
	}
	logical := physicalToLogical(phyID, ty)
	req, err := buildBusRequest(u.name, logical, occupant)
	if err != nil {
		return mem.Request{}, false
	}
	if err := station.StartExecute(phyID); err != nil {
		return mem.Request{}, false
	}
	return req, true
}

func buildBusRequest(path string, logical int, occupant *AccessInst) (mem.Request, error) {
	_, length, err := parseAccess(occupant.Name())
	if err != nil {
		return mem.Request{}, err
	}
	args := occupant.Arguments()

	switch occupant.AccessType() {
	case AccessLoad:
		addr, ok := args[0].Val()
		if !ok {
			return mem.Request{}, fmt.Errorf("memunit: ready load has an unresolved address")
		}
		return mem.NewLoadRequest(path, logical, addr, length), nil
	case AccessStore:
		value, ok := args[0].Val()
		if !ok {
			return mem.Request{}, fmt.Errorf("memunit: ready store has an unresolved value")
		}
		addr, ok := args[1].Val()
		if !ok {
			return mem.Request{}, fmt.Errorf("memunit: ready store has an unresolved address")
		}
		return mem.NewStoreRequest(path, logical, addr, encodeBigEndian(value, length)), nil
	default:
		return mem.Request{}, fmt.Errorf("memunit: unknown access type")
	}
}

func encodeBigEndian(val uint32, length int) []byte {
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = byte(val)
		val >>= 8
	}
	return out
}

// DeliverBusResponse records the outcome of a previously-sent request,
// to be placed on the result bus on a future Advance.
func (u *Unit) DeliverBusResponse(logical int, resp mem.Response) {
	var result core.ExecResult
	switch {
	case resp.Failed():
		result = core.ErrResult(resp.Err)
	case resp.Kind == mem.Load:
		result = core.MemLoadResult(resp.LoadBytes)
	default:
		result = core.MemStoreResult()
	}
	u.result = &pendingResult{logical: logical, result: result}
}

// Pending returns the combined pending-instruction count of both
// stations, for the processor's issue load-balancing.
func (u *Unit) Pending() int { return u.loadStation.PendingCount() + u.storeStation.PendingCount() }

// IsIdle reports whether the unit holds no queued, evaluating, or
// station-resident instruction.
func (u *Unit) IsIdle() bool {
	return u.evalQueue.IsEmpty() && u.loadStation.OccupiedCount() == 0 && u.storeStation.OccupiedCount() == 0
}

// Snapshot returns a human-readable dump of the queue and both
// stations, for Processor.Snapshot().
func (u *Unit) Snapshot() []string {
	lines := []string{u.name + ":"}
	u.evalQueue.Each(func(i int, e *evalEntry) {
		lines = append(lines, fmt.Sprintf("eval[%d]: %s", i, e.inst))
	})
	lines = append(lines, "load:")
	lines = append(lines, u.loadStation.Snapshot()...)
	lines = append(lines, "store:")
	lines = append(lines, u.storeStation.Snapshot()...)
	return lines
}
