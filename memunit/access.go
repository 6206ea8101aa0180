package memunit

import (
	"fmt"

	"github.com/archsim/tomasim/core"
)

// AccessType distinguishes a load from a store. Grounded on
// original_source/src/functional_units/memory_access_unit.rs's
// AccessType enum.
type AccessType int

const (
	AccessLoad AccessType = iota
	AccessStore
)

func (t AccessType) String() string {
	if t == AccessStore {
		return "store"
	}
	return "load"
}

// accessLen returns the byte width of an access from its opcode's
// length identifier. Only word-wide accesses ("w") exist today; the
// table exists as its own function so a byte/half-word opcode can be
// added without touching call sites.
func accessLen(identifier byte) (int, error) {
	switch identifier {
	case 'w':
		return 4, nil
	default:
		return 0, fmt.Errorf("memunit: unknown access length identifier %q", identifier)
	}
}

// parseAccess splits an opcode like "lw" or "sw" into its access type
// and byte length.
func parseAccess(opcode string) (AccessType, int, error) {
	if len(opcode) < 2 {
		return 0, 0, fmt.Errorf("memunit: opcode %q too short to be a memory access", opcode)
	}
	var ty AccessType
	switch opcode[0] {
	case 'l':
		ty = AccessLoad
	case 's':
		ty = AccessStore
	default:
		return 0, 0, fmt.Errorf("memunit: undefined access type %q", opcode[0:1])
	}
	length, err := accessLen(opcode[1])
	if err != nil {
		return 0, 0, err
	}
	return ty, length, nil
}

// accessRange returns the half-open byte range [start,end) an access
// touches once its base address is known.
func accessRange(opcode string, base uint32) (uint32, uint32, error) {
	_, length, err := parseAccess(opcode)
	if err != nil {
		return 0, 0, err
	}
	return base, base + uint32(length), nil
}

// overlaps reports whether byte ranges [a0,a1) and [b0,b1) share any
// address.
func overlaps(a0, a1, b0, b1 uint32) bool {
	return a1 > b0 && b1 > a0
}

// memAddress is a base register (possibly still waiting on a tag)
// plus an immediate offset, collapsing into a single evaluated
// address once the base resolves and evaluation has run.
type memAddress struct {
	evaluated bool
	base      core.ArgState
	offset    uint32
	addr      uint32
}

func newMemAddress(base, offset core.ArgState) (memAddress, error) {
	off, ok := offset.Val()
	if !ok {
		return memAddress{}, fmt.Errorf("memunit: offset of a memory address must be an immediate")
	}
	return memAddress{base: base, offset: off}, nil
}

func (m *memAddress) Forward(tag core.Tag, val uint32) {
	if !m.evaluated {
		m.base.Forward(tag, val)
	}
}

func (m memAddress) Arguments() []core.ArgState {
	if m.evaluated {
		return []core.ArgState{core.Ready(m.addr)}
	}
	return []core.ArgState{m.base}
}

// readyForEvaluation returns (base, offset) once the base register
// has resolved, so the evaluation stage can add them together.
func (m memAddress) readyForEvaluation() (base, offset uint32, ok bool) {
	if m.evaluated {
		return m.addr, 0, true
	}
	v, ok := m.base.Val()
	return v, m.offset, ok
}

func (m *memAddress) markEvaluated(addr uint32) {
	if !m.evaluated {
		m.evaluated = true
		m.addr = addr
	}
}

func (m memAddress) String() string {
	if m.evaluated {
		return fmt.Sprintf("%d", m.addr)
	}
	return fmt.Sprintf("%s + %d", m.base, m.offset)
}

// accessArgs holds the renamed operands of a load ([address]) or a
// store ([value, address]).
type accessArgs struct {
	isStore bool
	value   core.ArgState
	address memAddress
}

func newLoadArgs(args []core.ArgState) (accessArgs, error) {
	if len(args) != 2 {
		return accessArgs{}, fmt.Errorf("memunit: load expects 2 arguments, got %d", len(args))
	}
	addr, err := newMemAddress(args[0], args[1])
	if err != nil {
		return accessArgs{}, err
	}
	return accessArgs{address: addr}, nil
}

func newStoreArgs(args []core.ArgState) (accessArgs, error) {
	if len(args) != 3 {
		return accessArgs{}, fmt.Errorf("memunit: store expects 3 arguments, got %d", len(args))
	}
	addr, err := newMemAddress(args[1], args[2])
	if err != nil {
		return accessArgs{}, err
	}
	return accessArgs{isStore: true, value: args[0], address: addr}, nil
}

func (a *accessArgs) Forward(tag core.Tag, val uint32) {
	if a.isStore {
		a.value.Forward(tag, val)
	}
	a.address.Forward(tag, val)
}

// Arguments returns [Base] for a load and [Value, Base] for a store.
func (a accessArgs) Arguments() []core.ArgState {
	addrArgs := a.address.Arguments()
	if !a.isStore {
		return addrArgs
	}
	return append([]core.ArgState{a.value}, addrArgs...)
}

func (a *accessArgs) markEvaluated(base uint32) { a.address.markEvaluated(base) }

func (a accessArgs) readyForEvaluation() (uint32, uint32, bool) { return a.address.readyForEvaluation() }

// AccessInst is the renamed form of a load or store instruction: its
// address (and, for a store, its value), plus the set of sibling
// slots it must wait on for memory-ordering reasons. Grounded on
// original_source/src/functional_units/memory_access_unit.rs's
// AccessInst.
type AccessInst struct {
	name string
	args accessArgs
	deps []core.Tag
}

func newAccessInst(opcode string, renamedArgs []core.ArgState) (*AccessInst, error) {
	ty, _, err := parseAccess(opcode)
	if err != nil {
		return nil, err
	}
	var args accessArgs
	switch ty {
	case AccessLoad:
		args, err = newLoadArgs(renamedArgs)
	case AccessStore:
		args, err = newStoreArgs(renamedArgs)
	}
	if err != nil {
		return nil, err
	}
	return &AccessInst{name: opcode, args: args}, nil
}

func (i *AccessInst) Name() string              { return i.name }
func (i *AccessInst) Arguments() []core.ArgState { return i.args.Arguments() }

// AccessType reports whether this is a load or a store.
func (i *AccessInst) AccessType() AccessType {
	ty, _, _ := parseAccess(i.name)
	return ty
}

func (i *AccessInst) dependencyFree() bool { return len(i.deps) == 0 }

// IsReady reports whether every argument has resolved and every
// memory-ordering dependency this instruction was given at evaluation
// time has cleared.
func (i *AccessInst) IsReady() bool {
	if !i.dependencyFree() {
		return false
	}
	for _, arg := range i.args.Arguments() {
		if !arg.IsReady() {
			return false
		}
	}
	return true
}

// Forward delivers a bus broadcast both to our arguments and to our
// dependency list: a dependency clears exactly like an argument would.
func (i *AccessInst) Forward(tag core.Tag, val uint32) {
	i.args.Forward(tag, val)
	for idx, dep := range i.deps {
		if dep == tag {
			i.deps = append(i.deps[:idx], i.deps[idx+1:]...)
			break
		}
	}
}

// markEvaluated records the final evaluated address and the
// dependency set computed against sibling stations at evaluation time.
func (i *AccessInst) markEvaluated(base uint32, deps []core.Tag) {
	i.deps = deps
	i.args.markEvaluated(base)
}

func (i *AccessInst) readyForEvaluation() (uint32, uint32, bool) { return i.args.readyForEvaluation() }

func (i *AccessInst) String() string {
	return fmt.Sprintf("%s %v %v", i.name, i.args, i.deps)
}
