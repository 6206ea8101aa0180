// Package cachedmem wraps a mem.BusMemory behind a small direct-mapped
// or set-associative L1 cache, using Akita's directory/LRU
// implementation for tag and replacement bookkeeping. It speaks the
// exact same mem.BusMemory protocol it wraps, so a processor's memory
// unit cannot tell the difference between talking to bare DRAM and
// talking through this decorator. Grounded on the teacher's
// timing/cache/cache.go, adapted from 64-bit ARM addressing and a
// push-style API to this core's 32-bit addressing and pull-style
// mem.Request/mem.Response protocol.
//
// This package is never imported by processor or memunit; wiring it
// in front of a mem.BusMemory is strictly a driver-level choice (see
// cmd/tomasim's -cache flag), keeping the core itself free of any
// cache-hierarchy dependency.
package cachedmem

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/archsim/tomasim/mem"
)

// Config holds the cache's geometry and fixed access latencies.
type Config struct {
	Size          int // bytes
	Associativity int
	BlockSize     int // bytes
	HitLatency    uint64
	MissLatency   uint64
}

// DefaultL1Config returns a small L1 sized for this core's 32-bit
// address space: 4KiB, 4-way, 16-byte lines.
func DefaultL1Config() Config {
	return Config{
		Size:          4096,
		Associativity: 4,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   8,
	}
}

// Statistics tracks cache access outcomes for diagnostics.
type Statistics struct {
	Reads, Writes, Hits, Misses, Evictions, Writebacks uint64
}

// Cache decorates a mem.BusMemory with an L1 directory.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
	backing   mem.BusMemory
	stats     Statistics
}

// New constructs a Cache of the given configuration in front of
// backing.
func New(config Config, backing mem.BusMemory) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

func (c *Cache) Stats() Statistics { return c.stats }

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	return uint64(addr/uint32(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Service implements mem.BusMemory, making the cache a drop-in
// replacement for the memory it wraps.
func (c *Cache) Service(req mem.Request) mem.Response {
	switch req.Kind {
	case mem.Load:
		return c.read(req)
	case mem.Store:
		return c.write(req)
	default:
		return mem.ErrResponse("cachedmem: unknown access kind")
	}
}

func (c *Cache) read(req mem.Request) mem.Response {
	c.stats.Reads++

	blockAddr := c.blockAddr(req.Address)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		offset := int(req.Address) - int(blockAddr)
		return mem.LoadResponse(readBlock(c.dataStore[c.blockIndex(block)], offset, req.Len))
	}

	c.stats.Misses++
	block, err := c.fill(blockAddr)
	if err != "" {
		return mem.ErrResponse(err)
	}
	offset := int(req.Address) - int(blockAddr)
	return mem.LoadResponse(readBlock(c.dataStore[c.blockIndex(block)], offset, req.Len))
}

func (c *Cache) write(req mem.Request) mem.Response {
	c.stats.Writes++

	blockAddr := c.blockAddr(req.Address)
	block := c.directory.Lookup(0, blockAddr)
	if block == nil || !block.IsValid {
		c.stats.Misses++
		var err string
		block, err = c.fill(blockAddr)
		if err != "" {
			return mem.ErrResponse(err)
		}
	} else {
		c.stats.Hits++
	}

	c.directory.Visit(block)
	offset := int(req.Address) - int(blockAddr)
	writeBlock(c.dataStore[c.blockIndex(block)], offset, req.Bytes)
	block.IsDirty = true
	return mem.StoreResponse()
}

// fill handles a miss: evict the LRU victim (writing it back if
// dirty), then fetch the new block from the backing memory.
func (c *Cache) fill(blockAddr uint64) (*akitacache.Block, string) {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return nil, "cachedmem: no victim available for eviction"
	}

	victimData := c.dataStore[c.blockIndex(victim)]
	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.stats.Writebacks++
			resp := c.backing.Service(mem.NewStoreRequest("cachedmem", 0, uint32(victim.Tag), victimData))
			if resp.Failed() {
				return nil, resp.Err
			}
		}
	}

	resp := c.backing.Service(mem.NewLoadRequest("cachedmem", 0, uint32(blockAddr), c.config.BlockSize))
	if resp.Failed() {
		return nil, resp.Err
	}
	copy(victimData, resp.LoadBytes)

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	return victim, ""
}

func readBlock(block []byte, offset, length int) []byte {
	out := make([]byte, length)
	copy(out, block[offset:offset+length])
	return out
}

func writeBlock(block []byte, offset int, bytes []byte) {
	copy(block[offset:offset+len(bytes)], bytes)
}
