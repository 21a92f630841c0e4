package main

import (
	"flag"
	"fmt"
	"io"

	componentmcp "github.com/GoCodeAlone/workflow-components/mcp"
)

// runMCP starts the MCP server over stdio. Logs go nowhere: stdout carries
// the protocol and stderr is often shown to the user by the client.
func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	var host hostFlags
	host.register(fs)
	allowRun := fs.Bool("allow-run", false, "Expose the run_component tool")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: compctl mcp [options]

Start the MCP (Model Context Protocol) server over stdio. Tools:
list_components, describe_component, validate_batch and, with -allow-run,
run_component.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Example client configuration:

  {
    "mcpServers": {
      "components": {
        "command": "compctl",
        "args": ["mcp", "-allow-run"]
      }
    }
  }
`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	inv, err := host.invoker(host.logger(io.Discard))
	if err != nil {
		return err
	}
	return componentmcp.NewServer(inv, componentmcp.WithRun(*allowRun)).ServeStdio()
}
