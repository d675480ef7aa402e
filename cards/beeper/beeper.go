// Package beeper implements a SlotCard that turns writes to its one
// soft-switch into a queued square-wave blip, grounded on
// audio_backend_oto.go/audio_backend_headless.go's backend-selection split:
// a real oto.Context-backed player behind a headless no-op fallback chosen
// by build tag.
package beeper

import (
	"math"
	"sync"

	"github.com/intuitionamiga/bus-fabric"
)

const defaultSampleRate = 44100

// audioBackend is the build-tag-selected sample sink; see
// backend_oto.go (!headless) and backend_headless.go (headless).
type audioBackend interface {
	start(sampleRate int) error
	playBlip(freqHz float64, durationMs int)
	close()
}

type blipRequest struct {
	freqHz     float64
	durationMs int
}

// Card queues one blip per write to offset 0; the byte value written
// selects the pitch (freq = 220Hz * 2^(value/12), a one-octave-per-12-steps
// scale). A background goroutine drains the queue and drives the backend,
// so a slow platform blip never stalls the bus write that triggered it.
type Card struct {
	slot    int
	backend audioBackend
	queue   chan blipRequest
	wg      sync.WaitGroup
	started bool
}

// New constructs a beeper with the platform-appropriate audio backend.
func New() *Card {
	return &Card{backend: newBackend(), queue: make(chan blipRequest, 32)}
}

func (c *Card) Name() string        { return "beeper" }
func (c *Card) DeviceType() string  { return "square-wave-audio" }
func (c *Card) Kind() string        { return "beeper" }
func (c *Card) SlotNumber() int     { return c.slot }
func (c *Card) SetSlotNumber(s int) { c.slot = s }

func (c *Card) IOHandlers() ([16]bus.ReadHandlerFunc, [16]bus.WriteHandlerFunc) {
	var reads [16]bus.ReadHandlerFunc
	var writes [16]bus.WriteHandlerFunc
	writes[0] = func(_ int, value byte, access *bus.BusAccess) {
		if access.IsSideEffectFree() {
			return
		}
		c.enqueue(pitchForByte(value), 60)
	}
	return reads, writes
}

func (c *Card) ROMRegion() []byte          { return nil }
func (c *Card) ExpansionROMRegion() []byte { return nil }
func (c *Card) OnExpansionROMSelected()    {}
func (c *Card) OnExpansionROMDeselected()  {}

// Reset drains any pending blips without stopping the drain goroutine - a
// machine reset silences the speaker immediately but the card stays live.
func (c *Card) Reset() {
	for {
		select {
		case <-c.queue:
		default:
			return
		}
	}
}

func (c *Card) Initialize(ctx *bus.EventContext) {
	if c.started {
		return
	}
	if err := c.backend.start(defaultSampleRate); err != nil {
		return
	}
	c.started = true
	c.wg.Add(1)
	go c.drain()
}

func (c *Card) drain() {
	defer c.wg.Done()
	for req := range c.queue {
		c.backend.playBlip(req.freqHz, req.durationMs)
	}
}

func (c *Card) enqueue(freqHz float64, durationMs int) {
	select {
	case c.queue <- blipRequest{freqHz: freqHz, durationMs: durationMs}:
	default:
		// queue full: drop the blip rather than block the bus write.
	}
}

func pitchForByte(value byte) float64 {
	const base = 220.0
	steps := float64(value) / 12.0
	return base * math.Pow(2, steps)
}
