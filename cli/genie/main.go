package main

import (
	"os"

	geniecmder "github.com/genie-cli/genie/cmd/genie"
)

func main() {
	cmd := geniecmder.NewGenieCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
