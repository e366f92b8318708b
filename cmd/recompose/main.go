// Command recompose replays scripted scenarios through the reconciliation
// engine and prints the tree after every tick.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
