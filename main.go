// Package main is the entry point for the sasspipe CLI.
package main

import "sasspipe.dev/pkg/sasspipe/cmd"

func main() {
	cmd.Execute()
}
