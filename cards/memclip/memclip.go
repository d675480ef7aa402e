// Package memclip implements a SlotCard that pastes the host clipboard's
// text into its own 256-byte ROM window, grounded on
// video_backend_ebiten.go's handleClipboardPaste (same clipboard.Init/Read
// call pair, here routed into a slot card's memory window instead of the
// video framebuffer's keyboard queue).
package memclip

import "github.com/intuitionamiga/bus-fabric"

const windowSize = 256

// clipboardBackend is the build-tag-selected source of clipboard text; see
// backend_clipboard.go (!headless) and backend_headless.go (headless).
type clipboardBackend interface {
	init() error
	readText() []byte
}

// Card pastes the host clipboard into a 256-byte ROM window on
// OnExpansionROMSelected, so a program running on the bus can read a
// pasted listing the way it would read any other slot ROM.
type Card struct {
	slot    int
	backend clipboardBackend
	ready   bool
	window  [windowSize]byte
	length  int
}

// New constructs a memclip card with the platform-appropriate clipboard
// backend already selected.
func New() *Card {
	return &Card{backend: newBackend()}
}

func (c *Card) Name() string        { return "memclip" }
func (c *Card) DeviceType() string  { return "clipboard-paste" }
func (c *Card) Kind() string        { return "memclip" }
func (c *Card) SlotNumber() int     { return c.slot }
func (c *Card) SetSlotNumber(s int) { c.slot = s }

// IOHandlers exposes offset 0 as a manual paste trigger (any write re-runs
// the paste) and offset 1 as a read-only paste-length register.
func (c *Card) IOHandlers() ([16]bus.ReadHandlerFunc, [16]bus.WriteHandlerFunc) {
	var reads [16]bus.ReadHandlerFunc
	var writes [16]bus.WriteHandlerFunc
	reads[1] = func(_ int, _ *bus.BusAccess) byte { return byte(c.length) }
	writes[0] = func(_ int, _ byte, access *bus.BusAccess) {
		if !access.IsSideEffectFree() {
			c.paste()
		}
	}
	return reads, writes
}

// ROMRegion exposes the pasted text window; a caller wires this into the
// page table as a RomTarget over the slot's $Cs00-$CsFF range.
func (c *Card) ROMRegion() []byte { return c.window[:] }

// ExpansionROMRegion is unused by memclip; it has no shared 2 KiB window.
func (c *Card) ExpansionROMRegion() []byte { return nil }

// OnExpansionROMSelected pastes the clipboard the moment the card's
// expansion ROM window becomes active, mirroring a program LOADing a
// listing off a "disk" the instant it's inserted.
func (c *Card) OnExpansionROMSelected() { c.paste() }

func (c *Card) OnExpansionROMDeselected() {}

func (c *Card) Reset() {
	c.window = [windowSize]byte{}
	c.length = 0
}

func (c *Card) Initialize(ctx *bus.EventContext) {
	if err := c.backend.init(); err == nil {
		c.ready = true
	}
}

func (c *Card) paste() {
	if !c.ready {
		return
	}
	data := c.backend.readText()
	data = normalizePasteText(data)
	if len(data) > windowSize {
		data = data[:windowSize]
	}
	c.window = [windowSize]byte{}
	copy(c.window[:], data)
	c.length = len(data)
}

// normalizePasteText collapses CRLF/CR line endings to LF, matching how a
// program typing a pasted listing expects line breaks to arrive.
func normalizePasteText(raw []byte) []byte {
	norm := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\r' {
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			norm = append(norm, '\n')
			continue
		}
		norm = append(norm, raw[i])
	}
	return norm
}
