// Command hubctl inspects the section catalog and replays slot reconciliation
// offline against saved backend payloads.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
