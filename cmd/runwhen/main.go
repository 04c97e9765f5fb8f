// Package main provides the CLI entry point for runwhen.
package main

import "runwhen/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Execute(version)
}
