package main

import (
	"os"

	"github.com/momo-AUX1/craby/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
