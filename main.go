package main

import (
	"github.com/alecthomas/kong"
	"github.com/arnavsurve/specrun/cmd/cli"
)

var CLI struct {
	Run  cli.RunCmd  `cmd:"" help:"Run spec files against the configured environment."`
	Lint cli.LintCmd `cmd:"" help:"Validate spec files without running them."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("specrun"),
		kong.Description("Execute documentation-derived test specs."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
