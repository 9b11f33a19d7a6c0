package main

import "fmt"

// CLI is the council command-line interface.
var CLI struct {
	Debug   bool       `help:"Enable debug-level logging." short:"d" env:"COUNCIL_DEBUG"`
	Version VersionCmd `cmd:"" help:"Print version information."`
	Run     RunCmd     `cmd:"" help:"Run one deliberation and print the resulting assistant message."`
	Serve   ServeCmd   `cmd:"" help:"Start the thin HTTP/SSE demo server."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("council %s\n", version)
	return nil
}
