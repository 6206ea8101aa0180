// Package main provides a banner entry point for the module root.
// TomaSim is a cycle-accurate Tomasulo out-of-order core simulator.
//
// For the full CLI, use: go run ./cmd/tomasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("TomaSim - Tomasulo out-of-order core simulator")
	fmt.Println("")
	fmt.Println("Usage: tomasim [options] <program.asm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config          Path to latency configuration JSON file")
	fmt.Println("  -arith-units     Number of arithmetic units to wire in")
	fmt.Println("  -access-units    Number of memory-access units to wire in")
	fmt.Println("  -cache           Front the backing DRAM with an L1 cache")
	fmt.Println("  -trace           Print a Snapshot() after every cycle")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomasim' for the full CLI,")
	fmt.Println("or 'go run ./cmd/tomadump' for a cycle-by-cycle trace dump.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/tomasim' instead.")
	}
}
