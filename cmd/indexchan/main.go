// # cmd/indexchan/main.go
package main

import (
	"os"

	"indexchan/internal/ui/command"
)

func main() {
	os.Exit(command.Execute(os.Args[1:]))
}
