//go:build !headless

package statuscard

import (
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

// ebitenBackend renders each glyph cell as a solid cellPx x cellPx block
// whose brightness comes from the glyph byte, a deliberately simple stand-in
// for a real font so the card stays a thin adapter rather than a text
// renderer in its own right.
type ebitenBackend struct {
	cols, rows, cellPx int
	img                *ebiten.Image

	mu     sync.RWMutex
	glyphs []byte

	running   bool
	frames    atomic.Uint64
	vsyncChan chan struct{}
}

func newBackend() displayBackend { return &ebitenBackend{} }

func (b *ebitenBackend) start(cols, rows, cellPx int) error {
	b.cols, b.rows, b.cellPx = cols, rows, cellPx
	b.img = ebiten.NewImage(cols*cellPx, rows*cellPx)
	b.vsyncChan = make(chan struct{}, 1)
	b.running = true

	ebiten.SetWindowSize(cols*cellPx, rows*cellPx)
	ebiten.SetWindowTitle("statuscard")
	go func() { _ = ebiten.RunGame(b) }()
	return nil
}

func (b *ebitenBackend) updateFrame(glyphs []byte) error {
	b.mu.Lock()
	b.glyphs = glyphs
	b.mu.Unlock()
	return nil
}

func (b *ebitenBackend) stop() error {
	b.running = false
	return nil
}

func (b *ebitenBackend) frameCount() uint64 { return b.frames.Load() }

func (b *ebitenBackend) Update() error { return nil }

func (b *ebitenBackend) Draw(screen *ebiten.Image) {
	b.mu.RLock()
	glyphs := b.glyphs
	b.mu.RUnlock()

	for row := 0; row < b.rows; row++ {
		for col := 0; col < b.cols; col++ {
			idx := row*b.cols + col
			if idx >= len(glyphs) || glyphs[idx] == 0 {
				continue
			}
			shade := float32(glyphs[idx]) / 255
			cell := ebiten.NewImage(b.cellPx, b.cellPx)
			cell.Fill(rgbaFromShade(shade))
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(col*b.cellPx), float64(row*b.cellPx))
			screen.DrawImage(cell, op)
		}
	}
	b.frames.Add(1)
	select {
	case b.vsyncChan <- struct{}{}:
	default:
	}
}

func (b *ebitenBackend) Layout(_, _ int) (int, int) {
	return b.cols * b.cellPx, b.rows * b.cellPx
}

func rgbaFromShade(shade float32) color.RGBA {
	v := uint8(shade * 255)
	return color.RGBA{R: v, G: v, B: v, A: 255}
}
