package main

import (
	"tarjomic-watch/cmd/tarjomic-watch/commands"
)

func main() {
	commands.Execute()
}
