package mailcard

import (
	"testing"

	"github.com/intuitionamiga/bus-fabric"
)

func dataWrite() *bus.BusAccess { return &bus.BusAccess{Intent: bus.DataWrite} }
func dataRead() *bus.BusAccess  { return &bus.BusAccess{Intent: bus.DataRead} }

func TestMailcardEnqueueAssignsTicket(t *testing.T) {
	c := New()
	reads, writes := c.IOHandlers()
	writes[regOp](regOp, 7, dataWrite())
	writes[regCmd](regCmd, cmdEnqueue, dataWrite())

	if got := reads[regCmdStatus](regCmdStatus, dataRead()); got != statusOk {
		t.Fatalf("got cmd status %d want statusOk", got)
	}
	if got := reads[regTicketLo](regTicketLo, dataRead()); got != 0 {
		t.Fatalf("expected first ticket id 0, got %d", got)
	}
}

func TestMailcardPollAdvancesTicketThroughLifecycle(t *testing.T) {
	c := New()
	reads, writes := c.IOHandlers()
	writes[regOp](regOp, 1, dataWrite())
	writes[regCmd](regCmd, cmdEnqueue, dataWrite())

	writes[regTicketLo](regTicketLo, 0, dataWrite())
	writes[regTicketHi](regTicketHi, 0, dataWrite())

	writes[regCmd](regCmd, cmdPoll, dataWrite())
	if got := reads[regTicketStatus](regTicketStatus, dataRead()); got != ticketRunning {
		t.Fatalf("got %d want ticketRunning after first poll", got)
	}

	writes[regCmd](regCmd, cmdPoll, dataWrite())
	if got := reads[regTicketStatus](regTicketStatus, dataRead()); got != ticketOk {
		t.Fatalf("got %d want ticketOk after second poll", got)
	}
}

func TestMailcardPollUnknownTicketErrors(t *testing.T) {
	c := New()
	reads, writes := c.IOHandlers()
	writes[regTicketLo](regTicketLo, 99, dataWrite())
	writes[regCmd](regCmd, cmdPoll, dataWrite())

	if got := reads[regCmdStatus](regCmdStatus, dataRead()); got != statusError {
		t.Fatalf("got %d want statusError for unknown ticket", got)
	}
	if got := reads[regTicketStatus](regTicketStatus, dataRead()); got != ticketUnknown {
		t.Fatalf("got %d want ticketUnknown", got)
	}
}

func TestMailcardSideEffectFreeWriteIsIgnored(t *testing.T) {
	c := New()
	reads, writes := c.IOHandlers()
	access := &bus.BusAccess{Intent: bus.DebugWrite, Flags: bus.NoSideEffects}
	writes[regOp](regOp, 55, access)
	writes[regCmd](regCmd, cmdEnqueue, access)
	// No enqueue should have happened.
	writes[regTicketLo](regTicketLo, 0, dataWrite())
	writes[regCmd](regCmd, cmdPoll, dataWrite())
	if got := reads[regCmdStatus](regCmdStatus, dataRead()); got != statusError {
		t.Fatalf("expected no ticket to exist (cmd status error), got %d", got)
	}
}

func TestMailcardResetClearsTickets(t *testing.T) {
	c := New()
	reads, writes := c.IOHandlers()
	writes[regOp](regOp, 1, dataWrite())
	writes[regCmd](regCmd, cmdEnqueue, dataWrite())
	c.Reset()

	writes[regTicketLo](regTicketLo, 0, dataWrite())
	writes[regCmd](regCmd, cmdPoll, dataWrite())
	if got := reads[regCmdStatus](regCmdStatus, dataRead()); got != statusError {
		t.Fatalf("expected Reset to clear tickets, got cmd status %d", got)
	}
}
