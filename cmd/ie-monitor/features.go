// features.go - build-time feature reporting, grounded on features.go's
// compiledFeatures/printFeatures (init()-registered feature list + sorted
// printout), re-pointed at which optional slot cards this binary was built
// with instead of which audio/video backends.
package main

import (
	"fmt"
	"runtime"
	"sort"
)

const version = "0.1.0"

// compiledFeatures is appended to by registerDefaultCards (cards.go), using
// the labels from the !headless/headless split in
// backend_labels_default.go/backend_labels_headless.go.
var compiledFeatures []string

func printFeatures() {
	fmt.Printf("ie-monitor %s\n", version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Println("Compiled features:")

	sort.Strings(compiledFeatures)
	for _, f := range compiledFeatures {
		fmt.Printf("  %s\n", f)
	}
	if len(compiledFeatures) == 0 {
		fmt.Println("  (none)")
	}
}
