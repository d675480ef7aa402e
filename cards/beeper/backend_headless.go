//go:build headless

package beeper

type headlessAudioBackend struct{}

func newBackend() audioBackend { return &headlessAudioBackend{} }

func (b *headlessAudioBackend) start(sampleRate int) error { return nil }

func (b *headlessAudioBackend) playBlip(freqHz float64, durationMs int) {}

func (b *headlessAudioBackend) close() {}
