package main

import (
	"fmt"
	"os"

	"github.com/intime-labs/intime/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "intimectl:", err)
		os.Exit(1)
	}
}
