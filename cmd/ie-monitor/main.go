// ie-monitor is an interactive bus/scheduler debug console: it provisions
// a bus with the default slot cards installed, then drives a line-oriented
// REPL over raw stdin (grounded on terminal_host.go's raw-mode handling)
// that can inspect memory, force layer/swap-group transitions, and single
// step the deterministic event scheduler.
package main

import (
	"flag"
	"fmt"
	"os"

	bus "github.com/intuitionamiga/bus-fabric"
)

func main() {
	showFeatures := flag.Bool("features", false, "print compiled-in feature report and exit")
	ramSize := flag.Int("ram", 64*1024, "RAM size in bytes")
	flag.Parse()

	if *showFeatures {
		registerDefaultCards(bus.NewProvisioningBundle())
		printFeatures()
		return
	}

	bundle := bus.NewProvisioningBundle().WithRamSize(*ramSize)
	registerDefaultCards(bundle)

	mainBus, sched, signals, err := bundle.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ie-monitor: provisioning failed: %v\n", err)
		os.Exit(1)
	}

	mon := NewMonitor(mainBus, sched, signals)

	reader := NewLineReader()
	if err := reader.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "ie-monitor: %v\n", err)
		os.Exit(1)
	}
	defer reader.Stop()

	fmt.Println("ie-monitor ready. Type \"help\" for commands, \"quit\" to exit.")
	fmt.Print("> ")

	for line := range reader.Lines() {
		out := mon.Dispatch(line)
		if out != "" {
			fmt.Println(out)
		}
		if mon.Done() {
			break
		}
		fmt.Print("> ")
	}
}
