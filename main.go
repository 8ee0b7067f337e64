// main holds the entry logic for the migdelta CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/migdelta/cmd"
	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
