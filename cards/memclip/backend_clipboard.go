//go:build !headless

package memclip

import "golang.design/x/clipboard"

type realClipboardBackend struct{}

func newBackend() clipboardBackend { return &realClipboardBackend{} }

func (b *realClipboardBackend) init() error { return clipboard.Init() }

func (b *realClipboardBackend) readText() []byte { return clipboard.Read(clipboard.FmtText) }
