package main

import (
	"fmt"
	"os"

	"github.com/imovel-limpo/engine/cmd/limpo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
