package main

import (
	"os"

	"github.com/fairdatasociety/fairos_sdk_go/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
