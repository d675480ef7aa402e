// monitor.go - command dispatcher for the interactive debug console,
// grounded in spirit (not mechanism) on debug_monitor.go's MachineMonitor:
// a REPL that inspects and steers the bus/scheduler rather than a full
// breakpoint/trace/backstep machine.
package main

import (
	"fmt"
	"strconv"
	"strings"

	bus "github.com/intuitionamiga/bus-fabric"
)

// Monitor dispatches line-oriented commands against a live bus/scheduler/
// signal-bus triple.
type Monitor struct {
	Bus     *bus.MainBus
	Sched   *bus.Scheduler
	Signals *bus.SignalBus

	quit bool
}

// NewMonitor wires a dispatcher over an already-built bus triple.
func NewMonitor(b *bus.MainBus, s *bus.Scheduler, sig *bus.SignalBus) *Monitor {
	return &Monitor{Bus: b, Sched: s, Signals: sig}
}

// Done reports whether a "quit" command has been issued.
func (m *Monitor) Done() bool { return m.quit }

// Dispatch parses and executes a single command line, returning the
// output text to print.
func (m *Monitor) Dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	cmd, args := fields[0], fields[1:]

	switch strings.ToLower(cmd) {
	case "help", "?":
		return helpText
	case "quit", "exit":
		m.quit = true
		return "bye"
	case "features":
		printFeatures()
		return ""
	case "read", "r":
		return m.cmdRead(args)
	case "write", "w":
		return m.cmdWrite(args)
	case "layer":
		return m.cmdLayer(args)
	case "swap":
		return m.cmdSwap(args)
	case "advance", "a":
		return m.cmdAdvance(args)
	case "step", "s":
		return m.cmdStep()
	case "signals":
		return m.cmdSignals()
	default:
		return fmt.Sprintf("unknown command %q (try \"help\")", cmd)
	}
}

const helpText = `commands:
  read <addr>                  read one byte (debug, side-effect free)
  write <addr> <value>         write one byte
  layer on|off <name>          activate/deactivate a named overlay layer
  swap <group-id> <variant>    activate a swap-group variant
  advance <cycles>             advance the scheduler by N cycles
  step                         jump to and dispatch the next pending event
  signals                      dump asserted signal lines and NMI edge state
  features                     print compiled-in feature report
  quit                         exit the monitor`

func (m *Monitor) cmdRead(args []string) string {
	if len(args) != 1 {
		return "usage: read <addr>"
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err.Error()
	}
	v, rerr := m.Bus.Read8(addr, bus.DebugRead)
	if rerr != nil {
		return fmt.Sprintf("fault: %v", rerr)
	}
	return fmt.Sprintf("[%04X] = %02X", addr, v)
}

func (m *Monitor) cmdWrite(args []string) string {
	if len(args) != 2 {
		return "usage: write <addr> <value>"
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err.Error()
	}
	value, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 8)
	if err != nil {
		return fmt.Sprintf("bad value %q: %v", args[1], err)
	}
	if werr := m.Bus.Write8(addr, byte(value), bus.DataWrite); werr != nil {
		return fmt.Sprintf("fault: %v", werr)
	}
	return fmt.Sprintf("[%04X] <- %02X", addr, value)
}

func (m *Monitor) cmdLayer(args []string) string {
	if len(args) != 2 {
		return "usage: layer on|off <name>"
	}
	name := args[1]
	switch strings.ToLower(args[0]) {
	case "on":
		if err := m.Bus.Layers().ActivateLayer(name); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("layer %q activated", name)
	case "off":
		if err := m.Bus.Layers().DeactivateLayer(name); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("layer %q deactivated", name)
	default:
		return "usage: layer on|off <name>"
	}
}

func (m *Monitor) cmdSwap(args []string) string {
	if len(args) != 2 {
		return "usage: swap <group-id> <variant>"
	}
	groupId, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Sprintf("bad group id %q: %v", args[0], err)
	}
	if serr := m.Bus.Swaps().ActivateSwapVariant(groupId, args[1]); serr != nil {
		return serr.Error()
	}
	return fmt.Sprintf("swap group %d -> %q", groupId, args[1])
}

func (m *Monitor) cmdAdvance(args []string) string {
	if len(args) != 1 {
		return "usage: advance <cycles>"
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Sprintf("bad cycle count %q: %v", args[0], err)
	}
	target := m.Sched.Now() + bus.Cycle(n)
	if aerr := m.Sched.Advance(target); aerr != nil {
		return fmt.Sprintf("advance error: %v", aerr)
	}
	return fmt.Sprintf("now at cycle %d (%d pending)", m.Sched.Now(), m.Sched.PendingEventCount())
}

func (m *Monitor) cmdStep() string {
	fired, err := m.Sched.JumpToNextEventAndDispatch()
	if err != nil {
		return fmt.Sprintf("step error: %v", err)
	}
	if !fired {
		return "no pending events"
	}
	return fmt.Sprintf("stepped to cycle %d (%d pending)", m.Sched.Now(), m.Sched.PendingEventCount())
}

func (m *Monitor) cmdSignals() string {
	var b strings.Builder
	lines := []bus.SignalLine{bus.Irq, bus.Nmi, bus.Reset}
	for _, line := range lines {
		fmt.Fprintf(&b, "%-8s asserted=%v\n", line, m.Signals.IsAsserted(line))
	}
	fmt.Fprintf(&b, "nmi edge pending: %v\n", m.Signals.ConsumeNmiEdge())
	return strings.TrimRight(b.String(), "\n")
}

func parseAddr(s string) (bus.Addr, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return bus.Addr(v), nil
}
