package cli

import (
	"os"

	"github.com/erpl-adt/erpl-adt/pkg/mcpserver"
)

// RunMcpServer builds a session from flags + saved credentials, registers
// the ADT tool set, and blocks serving JSON-RPC on stdin/stdout until EOF.
func RunMcpServer(argv []string, version string) int {
	args, _ := parseLoginFlags(argv)
	out := newFormatter(args)

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}

	registry := mcpserver.NewRegistry()
	mcpserver.RegisterAdtTools(registry, s)

	server := mcpserver.NewServer(registry, mcpserver.ServerInfo{Name: "erpl-adt", Version: version})
	server.In = os.Stdin
	server.Out = os.Stdout
	if err := server.Run(); err != nil {
		return out.PrintValidationError("MCP server terminated: " + err.Error())
	}
	return 0
}
