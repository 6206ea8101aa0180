// Package main provides the entry point for tomasim, the Tomasulo
// out-of-order core simulator. It reads an assembly program one
// instruction per line, steps a processor.Processor until it goes
// idle or an instruction errors, and prints the final register file.
// The memory image is not printed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/archsim/tomasim/latency"
	"github.com/archsim/tomasim/mem"
	"github.com/archsim/tomasim/mem/cachedmem"
	"github.com/archsim/tomasim/processor"
)

var (
	configPath  = flag.String("config", "", "path to a latency configuration JSON file")
	arithUnits  = flag.Int("arith-units", 1, "number of arithmetic units to wire in")
	arithCap    = flag.Int("arith-capacity", 4, "reservation-station capacity per arithmetic unit")
	accessUnits = flag.Int("access-units", 1, "number of memory-access units to wire in")
	memSize     = flag.Int("mem-size", 4096, "backing DRAM size in bytes")
	memLatency  = flag.Uint64("mem-latency", 0, "fixed per-access DRAM latency, in cycles")
	useCache    = flag.Bool("cache", false, "front the backing DRAM with an L1 cache")
	cycleBudget = flag.Int("max-cycles", 1_000_000, "abort if the program has not gone idle within this many cycles")
	trace       = flag.Bool("trace", false, "print a processor.Snapshot() after every cycle")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tomasim [options] <program.asm>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	program, err := loadProgram(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	table := latency.NewTable()
	if *configPath != "" {
		cfg, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading latency config: %v\n", err)
			os.Exit(1)
		}
		table = latency.NewTableWithConfig(cfg)
	}

	p := processor.New()
	for i := 0; i < *arithUnits; i++ {
		if _, err := p.AddArithUnit(*arithCap, table); err != nil {
			fmt.Fprintf(os.Stderr, "Error wiring arithmetic unit: %v\n", err)
			os.Exit(1)
		}
	}
	for i := 0; i < *accessUnits; i++ {
		if _, err := p.AddAccessUnit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error wiring access unit: %v\n", err)
			os.Exit(1)
		}
	}

	dram := mem.NewDRAM(*memSize).WithLatency(*memLatency)
	var backing mem.BusMemory = dram
	if *useCache {
		backing = cachedmem.New(cachedmem.DefaultL1Config(), dram)
	}

	exitCode := run(p, backing, dram.Latency(), program)
	os.Exit(exitCode)
}

// loadProgram reads one instruction per non-blank, non-comment line.
// Lines beginning with '#' or ';' are comments.
func loadProgram(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var program []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		program = append(program, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return program, nil
}

// run feeds program into p one instruction per cycle, padding with nop
// once the program is exhausted, servicing memory-bus traffic against
// backing, until the processor reports idle or the cycle budget is
// exhausted. It returns the process exit code.
//
// Every popped bus request is staged through a mem.DelayQueue for
// latencyCycles before backing ever sees it, so a non-zero -mem-latency
// actually holds up the round trip instead of being a configured value
// nothing reads.
func run(p *processor.Processor, backing mem.BusMemory, latencyCycles uint64, program []string) int {
	delay := mem.NewDelayQueue(latencyCycles)

	for cycle := 0; cycle < *cycleBudget; cycle++ {
		idx := p.FetchAddress()
		inst := "nop"
		if idx < len(program) {
			inst = program[idx]
		}

		if err := p.Step(inst); err != nil {
			fmt.Fprintf(os.Stderr, "cycle %d: %v\n", cycle, err)
			return 1
		}

		if req, ok := p.PopBusRequest(); ok {
			delay.Submit(req, uint64(cycle))
		}

		for _, req := range delay.Ready(uint64(cycle)) {
			resp := backing.Service(req)
			if err := p.DeliverBusResponse(req.Path, req.Slot, resp); err != nil {
				fmt.Fprintf(os.Stderr, "cycle %d: %v\n", cycle, err)
				return 1
			}
		}

		if *trace {
			fmt.Printf("--- cycle %d ---\n%s", cycle, p.Snapshot())
		}

		if idx+1 >= len(program) && p.IsIdle() {
			fmt.Printf("Program completed after %d cycles.\n\n", cycle+1)
			printRegisters(p)
			return 0
		}
	}

	fmt.Fprintf(os.Stderr, "did not reach idle within %d cycles\n", *cycleBudget)
	return 2
}

func printRegisters(p *processor.Processor) {
	regs := p.PeekRegisters()
	for i, r := range regs {
		if v, ok := r.Val(); ok {
			fmt.Printf("R%-3d = %d\n", i, v)
		} else {
			fmt.Printf("R%-3d = <unresolved: %s>\n", i, r)
		}
	}
}
