//go:build headless

package main

const (
	memclipBackendLabel    = "memclip (headless stub backend)"
	beeperBackendLabel     = "beeper (headless stub backend)"
	statuscardBackendLabel = "statuscard (headless stub backend)"
)
