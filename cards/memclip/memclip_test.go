package memclip

import (
	"testing"

	"github.com/intuitionamiga/bus-fabric"
)

type fakeBackend struct {
	text []byte
}

func (f *fakeBackend) init() error       { return nil }
func (f *fakeBackend) readText() []byte { return f.text }

func newTestCard(text string) *Card {
	c := &Card{backend: &fakeBackend{text: []byte(text)}}
	c.Initialize(nil)
	return c
}

func TestCardOnExpansionROMSelectedPastesClipboard(t *testing.T) {
	c := newTestCard("10 PRINT \"HI\"\n")
	c.OnExpansionROMSelected()
	if string(c.ROMRegion()[:14]) != "10 PRINT \"HI\"\n" {
		t.Fatalf("got %q", c.ROMRegion()[:14])
	}
}

func TestCardNormalizesCRLF(t *testing.T) {
	c := newTestCard("A\r\nB\rC")
	c.OnExpansionROMSelected()
	got := string(c.ROMRegion()[:4])
	if got != "A\nB\n" {
		t.Fatalf("got %q want %q", got, "A\nB\n")
	}
}

func TestCardTruncatesToWindowSize(t *testing.T) {
	long := make([]byte, windowSize+50)
	for i := range long {
		long[i] = 'x'
	}
	c := newTestCard(string(long))
	c.OnExpansionROMSelected()
	if c.length != windowSize {
		t.Fatalf("got length %d want %d", c.length, windowSize)
	}
}

func TestCardManualPasteTriggerViaIOHandler(t *testing.T) {
	c := newTestCard("hello")
	_, writes := c.IOHandlers()
	writes[0](0, 0, &bus.BusAccess{Intent: bus.DataWrite})
	if c.length != 5 {
		t.Fatalf("got length %d want 5", c.length)
	}
}

func TestCardSideEffectFreeWriteDoesNotTriggerPaste(t *testing.T) {
	c := newTestCard("hello")
	_, writes := c.IOHandlers()
	writes[0](0, 0, &bus.BusAccess{Intent: bus.DebugWrite, Flags: bus.NoSideEffects})
	if c.length != 0 {
		t.Fatal("a side-effect-free write must not trigger a paste")
	}
}

func TestCardResetClearsWindow(t *testing.T) {
	c := newTestCard("hello")
	c.OnExpansionROMSelected()
	c.Reset()
	if c.length != 0 || c.ROMRegion()[0] != 0 {
		t.Fatal("Reset must clear the paste window")
	}
}
