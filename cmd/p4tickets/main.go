// Command p4tickets inspects and edits the ticket and trust files shared with
// other Perforce clients.
package main

import (
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("p4tickets failed", "error", err)
		os.Exit(1)
	}
}
