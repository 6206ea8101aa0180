package processor_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasim/latency"
	"github.com/archsim/tomasim/mem"
	"github.com/archsim/tomasim/processor"
)

// runToIdle feeds program into p one instruction per cycle (padding
// with nop once the program is exhausted), servicing any memory-bus
// traffic against backing each cycle, until the processor reports
// idle or cycleBudget cycles have passed.
func runToIdle(p *processor.Processor, backing mem.BusMemory, program []string, cycleBudget int) {
	for c := 0; c < cycleBudget; c++ {
		idx := p.FetchAddress()
		inst := "nop"
		if idx < len(program) {
			inst = program[idx]
		}

		Expect(p.Step(inst)).To(Succeed())

		if req, ok := p.PopBusRequest(); ok {
			resp := backing.Service(req)
			Expect(p.DeliverBusResponse(req.Path, req.Slot, resp)).To(Succeed())
		}

		if idx+1 >= len(program) && p.IsIdle() {
			return
		}
	}
	Fail("processor did not reach idle within the cycle budget")
}

func regValue(p *processor.Processor, idx int) uint32 {
	regs := p.PeekRegisters()
	v, ok := regs[idx].Val()
	Expect(ok).To(BeTrue(), "register %d should be resolved", idx)
	return v
}

var _ = Describe("Processor", func() {
	var backing *mem.DRAM

	BeforeEach(func() {
		backing = mem.NewDRAM(64)
	})

	Context("RAW chain on a single arithmetic unit", func() {
		It("resolves through tag forwarding regardless of latency", func() {
			p := processor.New()
			_, err := p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())

			program := []string{
				"addi R1,R0,#100",
				"addi R1,R1,#200",
				"add R2,R1,R1",
			}
			runToIdle(p, backing, program, 100)

			Expect(regValue(p, 1)).To(Equal(uint32(300)))
			Expect(regValue(p, 2)).To(Equal(uint32(600)))
		})
	})

	Context("diamond renaming across two arithmetic units", func() {
		It("produces the same result as sequential execution", func() {
			p := processor.New()
			_, err := p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())
			_, err = p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())

			program := []string{
				"addi R1,R0,#100",
				"addi R2,R0,#200",
				"add R3,R1,R2",
				"add R4,R1,R3",
				"add R3,R4,R3",
				"addi R1,R5,#400",
				"add R5,R1,R2",
			}
			runToIdle(p, backing, program, 200)

			Expect(regValue(p, 1)).To(Equal(uint32(400)))
			Expect(regValue(p, 2)).To(Equal(uint32(200)))
			Expect(regValue(p, 3)).To(Equal(uint32(700)))
			Expect(regValue(p, 4)).To(Equal(uint32(400)))
			Expect(regValue(p, 5)).To(Equal(uint32(600)))
			Expect(regValue(p, 0)).To(Equal(uint32(0)))
		})
	})

	Context("store/load round trip through a memory unit", func() {
		It("loads back exactly what it stored", func() {
			p := processor.New()
			_, err := p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())
			_, err = p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())
			_, err = p.AddAccessUnit()
			Expect(err).NotTo(HaveOccurred())

			program := []string{
				"addi R2,R0,#10",
				"addi R3,R0,#4",
				"sw R3,R2,#0",
				"lw R1,R2,#0",
			}
			runToIdle(p, backing, program, 100)

			Expect(regValue(p, 1)).To(Equal(uint32(4)))
			Expect(backing.Snapshot()[10:14]).To(Equal([]byte{0, 0, 0, 4}))
		})
	})

	Context("load-store hazard in the same memory unit", func() {
		It("makes the load wait for the earlier overlapping store", func() {
			p := processor.New()
			_, err := p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())
			_, err = p.AddAccessUnit()
			Expect(err).NotTo(HaveOccurred())

			program := []string{
				"addi R1,R0,#7",
				"addi R2,R0,#0",
				"sw R1,R2,#0",
				"lw R3,R2,#0",
				"addi R4,R3,#1",
			}
			runToIdle(p, backing, program, 100)

			Expect(regValue(p, 3)).To(Equal(uint32(7)))
			Expect(regValue(p, 4)).To(Equal(uint32(8)))
		})
	})

	Context("bus contention between two equal-latency arithmetic ops", func() {
		It("serializes their writebacks onto the single result bus", func() {
			p := processor.New()
			_, err := p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())
			_, err = p.AddArithUnit(2, latency.NewTable())
			Expect(err).NotTo(HaveOccurred())

			program := []string{
				"addi R1,R0,#1",
				"addi R2,R0,#2",
				"add R3,R1,R1",
				"add R4,R2,R2",
			}

			// Step by hand until both destinations have committed,
			// recording the cycle on which each one turned from
			// waiting back to resolved.
			commitCycle := map[int]int{}
			renamed := map[int]bool{}
			for c := 0; c < 100 && len(commitCycle) < 2; c++ {
				idx := p.FetchAddress()
				inst := "nop"
				if idx < len(program) {
					inst = program[idx]
				}
				Expect(p.Step(inst)).To(Succeed())
				regs := p.PeekRegisters()
				for _, r := range []int{3, 4} {
					_, done := commitCycle[r]
					if !regs[r].IsReady() {
						renamed[r] = true
					} else if renamed[r] && !done {
						commitCycle[r] = c
					}
				}
			}
			Expect(commitCycle).To(HaveLen(2))
			Expect(commitCycle[3]).NotTo(Equal(commitCycle[4]))

			runToIdle(p, backing, program, 100)

			Expect(regValue(p, 3)).To(Equal(uint32(2)))
			Expect(regValue(p, 4)).To(Equal(uint32(4)))
		})
	})
})
