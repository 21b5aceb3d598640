// main is the entry point of the backupwatch CLI.
package main

import (
	"github.com/huangsam/backupwatch/cmd"
	"github.com/huangsam/backupwatch/internal/contract"
)

func main() {
	err := cmd.Execute()
	cmd.Shutdown()
	if err != nil {
		contract.LogFatal("backupwatch failed", err)
	}
}
