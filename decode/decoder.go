// Package decode implements the decoder described in spec.md §4.1: an
// opcode registry mapping each opcode to the functional-unit names
// that can execute it, and a line-oriented text-to-DecodedInst parser.
package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind is the kind of one argument-position token in an
// instruction's format.
type TokenKind uint8

const (
	// Register expects a register operand (rN / RN).
	Register TokenKind = iota
	// Writeback expects a register operand that names the
	// instruction's destination rather than an ordinary argument.
	Writeback
	// Immediate expects an immediate operand (#N).
	Immediate
)

func (k TokenKind) String() string {
	switch k {
	case Register:
		return "Register"
	case Writeback:
		return "Writeback"
	case Immediate:
		return "Immediate"
	default:
		return "Unknown"
	}
}

// matches reports whether an actual token kind satisfies an expected
// one, per spec.md §4.1's matching table: Register and Writeback
// accept each other (either can occupy either position), Immediate
// only accepts Immediate.
func matches(actual, expected TokenKind) bool {
	if actual == Immediate || expected == Immediate {
		return actual == expected
	}
	return true // both are Register/Writeback in some combination
}

// Format describes one opcode's expected argument syntax.
type Format struct {
	Opcode string
	Tokens []TokenKind
}

// NewFormat builds a format for opcode with the given token sequence.
func NewFormat(opcode string, tokens ...TokenKind) Format {
	return Format{Opcode: opcode, Tokens: tokens}
}

// ArgKind distinguishes a decoded argument's payload.
type ArgKind uint8

const (
	// ArgReg is a register-index argument.
	ArgReg ArgKind = iota
	// ArgImm is an immediate-value argument.
	ArgImm
)

// Arg is one decoded, typed argument.
type Arg struct {
	Kind  ArgKind
	Reg   int
	Imm   uint32
}

// Reg builds a register argument.
func Reg(idx int) Arg { return Arg{Kind: ArgReg, Reg: idx} }

// Imm builds an immediate argument.
func Imm(val uint32) Arg { return Arg{Kind: ArgImm, Imm: val} }

// Decoded is one decoded instruction: its opcode, its ordered typed
// arguments (writeback excluded), its optional writeback destination
// register, and the ordered list of station names able to execute it.
type Decoded struct {
	Opcode    string
	Args      []Arg
	Writeback *int // register index, or nil if this opcode has none
	Stations  []string
}

// stationList is the shared, mutable list of station names registered
// for a given opcode set. Multiple opcodes that were registered
// together by the same Register call point at the same stationList,
// matching the original decoder's Rc<RefCell<Vec<String>>> sharing:
// appending a new station name to one opcode's list is visible to
// every opcode that shares it.
type stationList struct {
	names []string
}

func (l *stationList) append(name string) {
	l.names = append(l.names, name)
}

func (l *stationList) snapshot() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// sameSet reports whether two string slices contain the same elements
// regardless of order (used to detect "identical" vs. "disjoint"
// opcode sets on registration, per spec.md §4.1).
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

// Decoder maps opcode -> (format, station list) and turns raw
// instruction text into a Decoded instruction.
type Decoder struct {
	formats  map[string]Format
	stations map[string]*stationList
}

// New returns an empty decoder.
func New() *Decoder {
	return &Decoder{
		formats:  make(map[string]Format),
		stations: make(map[string]*stationList),
	}
}

// Register adds every format in formats to the registry under
// station. If an opcode in formats already has a registered station
// set, that set must be exactly equal to the opcode set being
// registered now (station name is appended, shared list), or it is an
// error — overlapping-but-unequal opcode sets across stations are not
// allowed (spec.md §4.1).
func (d *Decoder) Register(formats []Format, station string) error {
	if len(formats) == 0 {
		return nil
	}

	newOpcodes := make([]string, len(formats))
	for i, f := range formats {
		newOpcodes[i] = f.Opcode
	}

	// Determine whether every opcode in this batch already shares one
	// existing list, and that list's opcode set equals newOpcodes.
	var existing *stationList
	for _, op := range newOpcodes {
		if l, ok := d.stations[op]; ok {
			if existing == nil {
				existing = l
			} else if existing != l {
				return fmt.Errorf("decode: opcode set for station %q overlaps inconsistent station groups", station)
			}
		} else if existing != nil {
			return fmt.Errorf("decode: opcode %q is not part of the existing group being extended", op)
		}
	}

	if existing != nil {
		existingOpcodes := make([]string, 0, len(newOpcodes))
		for op, l := range d.stations {
			if l == existing {
				existingOpcodes = append(existingOpcodes, op)
			}
		}
		if !sameSet(existingOpcodes, newOpcodes) {
			return fmt.Errorf("decode: opcode set %v overlaps but is not identical to existing set %v", newOpcodes, existingOpcodes)
		}
		existing.append(station)
		return nil
	}

	list := &stationList{names: []string{station}}
	for _, f := range formats {
		d.formats[f.Opcode] = f
		d.stations[f.Opcode] = list
	}
	return nil
}

var delimiters = " ,():\n"

func tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(delimiters, r)
	})
}

func parseArgToken(token string) (TokenKind, Arg, error) {
	if token == "" {
		return 0, Arg{}, fmt.Errorf("decode: empty argument token")
	}
	prefix := token[0]
	body := token[1:]
	switch prefix {
	case 'r', 'R':
		idx, err := strconv.ParseUint(body, 10, 32)
		if err != nil {
			return 0, Arg{}, fmt.Errorf("decode: bad register index %q: %w", body, err)
		}
		return Register, Reg(int(idx)), nil
	case '#':
		val, err := strconv.ParseUint(body, 10, 32)
		if err != nil {
			return 0, Arg{}, fmt.Errorf("decode: bad immediate %q: %w", body, err)
		}
		return Immediate, Imm(uint32(val)), nil
	default:
		return 0, Arg{}, fmt.Errorf("decode: invalid argument prefix %q in token %q", string(prefix), token)
	}
}

// Decode parses one line of instruction text into a Decoded
// instruction using the registered opcode formats.
func (d *Decoder) Decode(line string) (Decoded, error) {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return Decoded{}, fmt.Errorf("decode: empty instruction")
	}

	opcode := tokens[0]
	format, ok := d.formats[opcode]
	if !ok {
		return Decoded{}, fmt.Errorf("decode: unknown opcode %q", opcode)
	}
	stations := d.stations[opcode].snapshot()

	argTokens := tokens[1:]
	if len(argTokens) != len(format.Tokens) {
		return Decoded{}, fmt.Errorf("decode: %q expects %d arguments, got %d", opcode, len(format.Tokens), len(argTokens))
	}

	out := Decoded{Opcode: opcode, Stations: stations}
	for i, tok := range argTokens {
		expected := format.Tokens[i]
		kind, arg, err := parseArgToken(tok)
		if err != nil {
			return Decoded{}, err
		}
		if !matches(kind, expected) {
			return Decoded{}, fmt.Errorf("decode: %q argument %d: expected %s, got %s", opcode, i, expected, kind)
		}
		if expected == Writeback {
			idx := arg.Reg
			out.Writeback = &idx
			continue
		}
		out.Args = append(out.Args, arg)
	}
	return out, nil
}
