package main

import (
	"os"

	"github.com/oshokin/xk6-atomics/internal/simcmd"
)

func main() {
	if err := simcmd.Execute(); err != nil {
		os.Exit(1)
	}
}
