package main

import (
	"os"

	"github.com/stevemurr/todo-sync-server/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
