// Command afis serves fingerprint verification and identification over HTTP and
// compares template files from the command line.
package main

import (
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
