package main

import (
	"github.com/heapquery/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
