//go:build !headless

package main

const (
	memclipBackendLabel    = "memclip (golang.design/x/clipboard backend)"
	beeperBackendLabel     = "beeper (ebitengine/oto/v3 backend)"
	statuscardBackendLabel = "statuscard (ebiten display backend)"
)
