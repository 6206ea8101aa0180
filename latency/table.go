package latency

// Table is a lookup from opcode name to execution cycle count,
// consulted by the arithmetic unit instead of an inline switch.
type Table struct {
	config *Config
}

// NewTable returns a latency table with default cycle counts.
func NewTable() *Table {
	return &Table{config: DefaultConfig()}
}

// NewTableWithConfig returns a latency table backed by cfg.
func NewTableWithConfig(cfg *Config) *Table {
	return &Table{config: cfg}
}

// Cycles returns the execution latency, in cycles, for opcode. It
// returns (0, false) for an opcode the table has no entry for; the
// arithmetic unit never reaches this case because the decoder only
// ever issues opcodes the unit registered.
func (t *Table) Cycles(opcode string) (uint64, bool) {
	switch opcode {
	case "add", "addi":
		return t.config.AddLatency, true
	case "mul", "muli":
		return t.config.MulLatency, true
	default:
		return 0, false
	}
}
