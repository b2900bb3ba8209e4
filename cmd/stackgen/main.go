package main

import "github.com/cameronsjo/stackgen/internal/cmd"

func main() {
	cmd.Execute()
}
