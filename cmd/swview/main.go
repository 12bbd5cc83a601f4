// Command swview browses Star Wars people in the terminal, driven by the
// persons view machine.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/amp-labs/viewfsm/cli"
	"github.com/amp-labs/viewfsm/script"
	"github.com/amp-labs/viewfsm/view"
)

type flags struct {
	graph    bool
	validate bool
	strict   bool
	once     bool
}

func main() {
	var f flags

	flag.BoolVar(&f.graph, "graph", false, "print the transition table as a Mermaid diagram and exit")
	flag.BoolVar(&f.validate, "validate", false, "validate the transition table and exit non-zero on errors")
	flag.BoolVar(&f.strict, "strict", false, "with -validate, treat warnings as errors")
	flag.BoolVar(&f.once, "once", false, "print the first settled screen and exit")

	script.New("swview").Run(func(ctx context.Context, env *script.Env) error {
		return run(ctx, env, f)
	})
}

func run(ctx context.Context, env *script.Env, f flags) error {
	table, err := loadTable(env.Config)
	if err != nil {
		return script.ExitWithError(err)
	}

	switch {
	case f.graph:
		return printGraph(os.Stdout, table)
	case f.validate:
		return validateTable(os.Stdout, env.Config, table, f.strict)
	}

	if err := checkTable(env.Logger, table); err != nil {
		return script.ExitWithError(err)
	}

	if env.Config.MetricsAddr != "" {
		serveMetrics(ctx, env)
	}

	machine, err := newMachine(ctx, env, table)
	if err != nil {
		return script.ExitWithError(err)
	}

	opts := cli.Options{Out: os.Stdout, Logger: env.Logger}

	if f.once {
		screen, err := cli.RenderOnce(ctx, machine, opts, env.Config.SWAPI.Timeout+time.Second)
		if err != nil {
			return err
		}

		if screen.Kind == view.KindError {
			return script.Exit(1)
		}

		return nil
	}

	err = cli.Run(ctx, machine, opts)
	if errors.Is(err, cli.ErrAborted) {
		return nil
	}

	return err
}
