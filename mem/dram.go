package mem

import "fmt"

// DRAM is a flat, byte-addressable reference memory implementing
// BusMemory with big-endian multi-byte values and a configurable
// fixed per-access latency. Latency defaults to 0 (combinational),
// matching spec.md §8's seed scenarios, which assume no bus latency;
// a caller wanting a non-trivial timing model configures one without
// the core ever knowing. Grounded on the original Rust
// memory_bus/dram.rs's flat-array, bounds-checked design.
type DRAM struct {
	bytes   []byte
	latency uint64
}

// NewDRAM returns a DRAM of the given size in bytes, zero-initialized,
// with zero access latency.
func NewDRAM(size int) *DRAM {
	return &DRAM{bytes: make([]byte, size)}
}

// WithLatency sets a fixed per-access latency in cycles, read back by
// a driver via Latency to configure a DelayQueue. Service itself stays
// synchronous and latency-unaware; the driver decides when to call it,
// not DRAM.
func (d *DRAM) WithLatency(cycles uint64) *DRAM {
	d.latency = cycles
	return d
}

// Latency reports the configured per-access latency.
func (d *DRAM) Latency() uint64 { return d.latency }

// Service performs req immediately, bounds-checking the access.
func (d *DRAM) Service(req Request) Response {
	switch req.Kind {
	case Load:
		if req.Address+uint32(req.Len) > uint32(len(d.bytes)) || req.Len < 0 {
			return ErrResponse(fmt.Sprintf("mem: load [%d,%d) out of bounds (size %d)",
				req.Address, req.Address+uint32(req.Len), len(d.bytes)))
		}
		out := make([]byte, req.Len)
		copy(out, d.bytes[req.Address:req.Address+uint32(req.Len)])
		return LoadResponse(out)
	case Store:
		end := req.Address + uint32(len(req.Bytes))
		if end > uint32(len(d.bytes)) {
			return ErrResponse(fmt.Sprintf("mem: store [%d,%d) out of bounds (size %d)",
				req.Address, end, len(d.bytes)))
		}
		copy(d.bytes[req.Address:end], req.Bytes)
		return StoreResponse()
	default:
		return ErrResponse("mem: unknown access kind")
	}
}

// Snapshot returns a copy of the underlying bytes, for test assertions
// and Processor.Snapshot() dumps.
func (d *DRAM) Snapshot() []byte {
	out := make([]byte, len(d.bytes))
	copy(out, d.bytes)
	return out
}
