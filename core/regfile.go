package core

// RegCount is the number of general-purpose registers exposed by the
// register file (R0-R15).
const RegCount = 16

// regEntry holds one register's concrete value and, while a renamed
// write is in flight, the tag that will eventually resolve it.
type regEntry struct {
	val uint32
	tag Tag
	has bool // true while tag is outstanding
}

// RegFile is the 16-entry renamable register file described in
// spec.md §4.2. Entry 0 carries no special hard-wired-zero semantics
// in this ISA (unlike R0 in many real machines) — it is an ordinary
// register that starts at zero and can be renamed and written like
// any other.
type RegFile struct {
	entries [RegCount]regEntry
}

// NewRegFile returns a register file with all entries zeroed and no
// outstanding tags.
func NewRegFile() *RegFile {
	return &RegFile{}
}

// Read returns the current state of register idx: Waiting(tag) if a
// rename is outstanding, Ready(value) otherwise.
func (r *RegFile) Read(idx int) ArgState {
	e := &r.entries[idx]
	if e.has {
		return Waiting(e.tag)
	}
	return Ready(e.val)
}

// Write scans every entry and, for each whose outstanding tag equals
// tag, stores val and clears the tag. More than one entry may match
// (a register renamed twice in a row leaves only the newer tag live,
// but an older in-flight write for a stale tag can still resolve a
// *different* register that is still waiting on it).
func (r *RegFile) Write(tag Tag, val uint32) {
	for i := range r.entries {
		e := &r.entries[i]
		if e.has && e.tag == tag {
			e.val = val
			e.has = false
		}
	}
}

// Rename unconditionally sets register idx's outstanding tag to tag,
// discarding whatever tag (if any) was there before. The discarded tag
// still resolves any other register waiting on it; this register
// simply stops listening for it.
func (r *RegFile) Rename(idx int, tag Tag) {
	r.entries[idx].tag = tag
	r.entries[idx].has = true
}

// Snapshot returns the current ArgState of every register, in order.
func (r *RegFile) Snapshot() [RegCount]ArgState {
	var out [RegCount]ArgState
	for i := range r.entries {
		out[i] = r.Read(i)
	}
	return out
}
