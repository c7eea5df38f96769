package main

import (
	"os"

	"bakery/cli"
)

func main() {
	os.Exit(cli.Execute())
}
