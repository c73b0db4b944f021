package main

import (
	"os"

	"github.com/example/spinbook/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Execute())
}
