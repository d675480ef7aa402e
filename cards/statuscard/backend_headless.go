//go:build headless

package statuscard

import "sync/atomic"

type headlessDisplayBackend struct {
	frames atomic.Uint64
}

func newBackend() displayBackend { return &headlessDisplayBackend{} }

func (b *headlessDisplayBackend) start(cols, rows, cellPx int) error { return nil }

func (b *headlessDisplayBackend) updateFrame(glyphs []byte) error {
	b.frames.Add(1)
	return nil
}

func (b *headlessDisplayBackend) stop() error { return nil }

func (b *headlessDisplayBackend) frameCount() uint64 { return b.frames.Load() }
