package main

import (
	"log"

	"github.com/qtforge/cortex/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		log.Fatalf("could not run command: %v", err)
	}
}
