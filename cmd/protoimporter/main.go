// Command protoimporter generates Python protobuf and gRPC modules and rewrites
// their imports into a self-contained package tree.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/protoimporter/cmd/protoimporter/commands"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("protoimporter"),
		kong.Description("Deterministic Python stub builds for protobuf and gRPC"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
