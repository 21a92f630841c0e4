package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoCodeAlone/workflow-components/invoke"
)

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var host hostFlags
	host.register(fs)
	inputs, cfg := kvFlag{}, kvFlag{}
	fs.Var(inputs, "i", "Input value as name=value (repeatable)")
	fs.Var(cfg, "c", "Config override as key=value (repeatable)")
	asJSON := fs.Bool("json", false, "Always print the output as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: compctl run [options] <component>

Run one component and print its output.

Example:
  compctl run -i value='{"a": 1}' input.json
  compctl run -i stop=5 -i step=2 sequence.range

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("component name is required")
	}

	inv, err := host.invoker(host.logger(os.Stderr), invoke.WithTrustedConfig())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := inv.Invoke(ctx, fs.Arg(0), cfg, inputs)
	if err != nil {
		return err
	}
	return printOutput(out, *asJSON)
}
