package main

import (
	"os"

	"bpaudit/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
