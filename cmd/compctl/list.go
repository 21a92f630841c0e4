package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GoCodeAlone/workflow-components/component"
)

// stdout is where commands write results; tests replace it.
var stdout io.Writer = os.Stdout

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	var host hostFlags
	host.register(fs)
	group := fs.String("group", "", "Only list components in this group")
	asJSON := fs.Bool("json", false, "Print descriptors as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: compctl list [options]\n\nList registered components.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := host.registry()
	if err != nil {
		return err
	}
	descs := reg.Descriptors()
	if *group != "" {
		descs = reg.ByGroup(*group)
		if len(descs) == 0 {
			return fmt.Errorf("no components in group %q (groups: %s)", *group, strings.Join(reg.Groups(), ", "))
		}
	}
	if *asJSON {
		return printJSON(descs)
	}

	fmt.Fprintf(stdout, "Components (%d):\n", len(descs))
	for _, d := range descs {
		fmt.Fprintf(stdout, "  %-30s  %-8s  %s\n", d.Name, d.Output, d.Description)
		if len(d.Inputs) > 0 {
			fmt.Fprintf(stdout, "    inputs: %s\n", inputSummary(d))
		}
	}
	return nil
}

func inputSummary(d component.Descriptor) string {
	parts := make([]string, len(d.Inputs))
	for i, in := range d.Inputs {
		p := in.Name + ":" + string(in.Type)
		if in.Optional {
			p += "?"
		}
		parts[i] = p
	}
	return strings.Join(parts, ",")
}

func runDescribe(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	var host hostFlags
	host.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: compctl describe [options] <component>\n\nPrint a component descriptor as JSON.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("component name is required")
	}

	reg, err := host.registry()
	if err != nil {
		return err
	}
	d, ok := reg.Lookup(fs.Arg(0))
	if !ok {
		return fmt.Errorf("unknown component %q", fs.Arg(0))
	}
	return printJSON(d)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOutput prints text outputs verbatim and everything else as JSON.
func printOutput(out any, asJSON bool) error {
	if f, ok := out.(component.File); ok {
		out = f.ToMap()
	}
	if s, ok := out.(string); ok && !asJSON {
		_, err := fmt.Fprintln(stdout, s)
		return err
	}
	return printJSON(out)
}
