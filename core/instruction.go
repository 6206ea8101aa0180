package core

// RenamedInst is the capability every reservation-station slot's
// occupant must provide. Arithmetic and memory-access instructions
// look identical from the station's perspective: a name, an argument
// list, a readiness check, and a way to accept a forwarded value.
type RenamedInst interface {
	// Name returns the opcode this instruction was issued under.
	Name() string
	// Arguments returns the current (possibly still-waiting) argument
	// list, in the order the functional unit expects them.
	Arguments() []ArgState
	// IsReady reports whether the instruction could be executed this
	// cycle: every argument resolved and, for memory accesses, every
	// ordering dependency cleared.
	IsReady() bool
	// Forward resolves any argument (or, for memory accesses, any
	// dependency) waiting on tag to val.
	Forward(tag Tag, val uint32)
}
