package main

import (
	"fmt"
	"os"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"list":     runList,
	"describe": runDescribe,
	"run":      runRun,
	"exec":     runExec,
	"serve":    runServe,
	"mcp":      runMCP,
}

func usage() {
	fmt.Fprintf(os.Stderr, `compctl - workflow component CLI (version %s)

Usage:
  compctl <command> [options]

Commands:
  list       List registered components (optionally by group)
  describe   Show a component's inputs, config keys and output type
  run        Run one component with -i input and -c config values
  exec       Run every invocation in a batch YAML file (-watch to re-run on change)
  serve      Serve the component HTTP API with Prometheus metrics
  mcp        Start the MCP server over stdio for AI assistant integration

Run 'compctl <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd) //nolint:gosec // G705: CLI error output
		usage()
		os.Exit(1)
	}
	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err) //nolint:gosec // G705: CLI error output
		os.Exit(1)
	}
}
