package main

import (
	"os"

	"investhub/cmd/server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
