package core

import "fmt"

// ArgState is the state of one renamed argument: either the value has
// already committed (Ready) or it is still waiting on a tag to
// broadcast on the result bus (Waiting).
type ArgState struct {
	ready bool
	val   uint32
	tag   Tag
}

// Ready builds a resolved argument holding val.
func Ready(val uint32) ArgState {
	return ArgState{ready: true, val: val}
}

// Waiting builds an unresolved argument pending the given tag.
func Waiting(tag Tag) ArgState {
	return ArgState{ready: false, tag: tag}
}

// IsReady reports whether the argument has resolved.
func (a ArgState) IsReady() bool {
	return a.ready
}

// Val returns the resolved value and true, or (0, false) if the
// argument is still waiting.
func (a ArgState) Val() (uint32, bool) {
	if !a.ready {
		return 0, false
	}
	return a.val, true
}

// Tag returns the tag this argument is waiting on and true, or the
// zero tag and false if the argument has already resolved.
func (a ArgState) Tag() (Tag, bool) {
	if a.ready {
		return Tag{}, false
	}
	return a.tag, true
}

// Forward resolves the argument to val if it is currently waiting on
// tag; it is a no-op otherwise (already-ready arguments never revert
// to waiting, and arguments waiting on a different tag are untouched).
func (a *ArgState) Forward(tag Tag, val uint32) {
	if a.ready {
		return
	}
	if a.tag == tag {
		a.ready = true
		a.val = val
	}
}

// String renders the argument as its value or its pending tag.
func (a ArgState) String() string {
	if a.ready {
		return fmt.Sprintf("%d", a.val)
	}
	return a.tag.String()
}
