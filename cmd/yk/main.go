package main

import (
	"os"

	"github.com/yuuki-launcher/yuuki-core/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
