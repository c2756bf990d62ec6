// Command layoutctl is the command-line client of the layout service.
package main

import (
	"os"

	"github.com/R3E-Network/layout_service/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
