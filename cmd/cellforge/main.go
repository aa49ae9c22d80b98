// Command cellforge builds a bolted vessel model from variable files and
// prints or stores its cells and surfaces.
package main

import (
	"os"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
