package main

import (
	"os"
	_ "time/tzdata"

	"github.com/angelsbailbonds/opsflow/cmd/cli"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// stdout belongs to MCP stdio sessions and command output.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cli.Execute()
}
