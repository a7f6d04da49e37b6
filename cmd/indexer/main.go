// Command indexer is the admin CLI for the tag index. It opens the
// configured index and document stores directly, so it must not run while
// a searcher owns the same index.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/notesearch/cmd/indexer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
