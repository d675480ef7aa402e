//go:build !headless

package beeper

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
)

type otoBackend struct {
	ctx        *oto.Context
	sampleRate int
}

func newBackend() audioBackend { return &otoBackend{} }

func (b *otoBackend) start(sampleRate int) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return err
	}
	<-ready
	b.ctx = ctx
	b.sampleRate = sampleRate
	return nil
}

// playBlip synthesizes a square wave at freqHz for durationMs and plays it
// to completion, blocking the drain goroutine (not the bus write that
// enqueued it) for the blip's duration.
func (b *otoBackend) playBlip(freqHz float64, durationMs int) {
	if b.ctx == nil {
		return
	}
	numSamples := b.sampleRate * durationMs / 1000
	samplesPerCycle := float64(b.sampleRate) / freqHz
	buf := new(bytes.Buffer)
	for i := 0; i < numSamples; i++ {
		phase := math.Mod(float64(i), samplesPerCycle) / samplesPerCycle
		var sample float32 = -0.3
		if phase < 0.5 {
			sample = 0.3
		}
		_ = binary.Write(buf, binary.LittleEndian, sample)
	}
	player := b.ctx.NewPlayer(bytes.NewReader(buf.Bytes()))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(time.Millisecond)
	}
	player.Close()
}

func (b *otoBackend) close() {}
