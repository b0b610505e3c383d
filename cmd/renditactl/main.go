// Command renditactl prints the portfolio, its projection and an AI review
// as terminal markdown.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	a := newApp(os.Stdout)
	completion().Complete(path.Base(os.Args[0]))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&summaryCmd{app: a}, "portfolio")
	commander.Register(&projectCmd{app: a}, "portfolio")
	commander.Register(&analyzeCmd{app: a}, "portfolio")
	commander.Register(&horizonsCmd{app: a}, "reference")

	flag.BoolVar(&a.raw, "raw", false, "print plain markdown instead of styled terminal output")
	flag.IntVar(&a.width, "width", 100, "word wrap width for styled output")
	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
