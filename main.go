package main

import (
	"os"

	"github.com/openvest/vestd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
