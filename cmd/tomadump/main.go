// Package main provides tomadump, a narrow companion to tomasim that
// dumps a cycle-by-cycle processor.Snapshot() trace instead of just
// the final register state. It exists for debugging renamed-tag
// chains and bus contention by eye, the way the teacher's
// cmd/profile/main.go exists purely to isolate a performance question
// from cmd/m2sim's general-purpose run modes.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/archsim/tomasim/latency"
	"github.com/archsim/tomasim/mem"
	"github.com/archsim/tomasim/processor"
)

var (
	arithUnits  = flag.Int("arith-units", 1, "number of arithmetic units to wire in")
	arithCap    = flag.Int("arith-capacity", 4, "reservation-station capacity per arithmetic unit")
	accessUnits = flag.Int("access-units", 1, "number of memory-access units to wire in")
	memSize     = flag.Int("mem-size", 4096, "backing DRAM size in bytes")
	memLatency  = flag.Uint64("mem-latency", 0, "fixed per-access DRAM latency, in cycles")
	cycleBudget = flag.Int("max-cycles", 1000, "stop dumping after this many cycles regardless of idle state")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tomadump [options] <program.asm>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	program, err := loadProgram(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	p := processor.New()
	for i := 0; i < *arithUnits; i++ {
		if _, err := p.AddArithUnit(*arithCap, latency.NewTable()); err != nil {
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

	backing := mem.NewDRAM(*memSize).WithLatency(*memLatency)
	delay := mem.NewDelayQueue(backing.Latency())

	for cycle := 0; cycle < *cycleBudget; cycle++ {
		idx := p.FetchAddress()
		inst := "nop"
		if idx < len(program) {
			inst = program[idx]
		}

		if err := p.Step(inst); err != nil {
			fmt.Fprintf(os.Stderr, "cycle %d: %v\n", cycle, err)
			os.Exit(1)
		}

		if req, ok := p.PopBusRequest(); ok {
			delay.Submit(req, uint64(cycle))
		}

		for _, req := range delay.Ready(uint64(cycle)) {
			resp := backing.Service(req)
			if err := p.DeliverBusResponse(req.Path, req.Slot, resp); err != nil {
				fmt.Fprintf(os.Stderr, "cycle %d: %v\n", cycle, err)
				os.Exit(1)
			}
		}

		fmt.Printf("=== cycle %d (fetch %s) ===\n%s\n", cycle, inst, p.Snapshot())

		if idx+1 >= len(program) && p.IsIdle() {
			fmt.Printf("idle after %d cycles\n", cycle+1)
			return
		}
	}
}

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
