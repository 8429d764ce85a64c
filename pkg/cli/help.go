package cli

import (
	"fmt"
	"io"

	"github.com/erpl-adt/erpl-adt/pkg/router"
	"github.com/erpl-adt/erpl-adt/pkg/termcolor"
)

// PrintTopLevelHelp writes the full command overview: new-style groups,
// the login/logout/mcp special commands, the legacy deploy subcommands,
// and the global flags.
func PrintTopLevelHelp(r *router.Router, out io.Writer, profile termcolor.Profile) {
	bold := func(s string) string { return profile.Render(profile.Styles.Bold, s) }
	dim := func(s string) string { return profile.Render(profile.Styles.Muted, s) }

	fmt.Fprintln(out, bold("erpl-adt")+" - CLI for the SAP ADT REST API")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: erpl-adt <group> <action> [options]")
	fmt.Fprintln(out)

	fmt.Fprintln(out, bold("Commands:"))
	for _, group := range r.Groups() {
		fmt.Fprintf(out, "\n  %s\n", bold(group))
		for _, cmd := range r.CommandsForGroup(group) {
			fmt.Fprintf(out, "    %-12s %s\n", cmd.Action, dim(cmd.Description))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, bold("Session:"))
	fmt.Fprintf(out, "    %-12s %s\n", "login", dim("Store connection credentials in "+CredsFile))
	fmt.Fprintf(out, "    %-12s %s\n", "logout", dim("Remove stored credentials"))
	fmt.Fprintf(out, "    %-12s %s\n", "mcp", dim("Start the MCP tool server on stdin/stdout"))

	fmt.Fprintln(out)
	fmt.Fprintln(out, bold("Deployment (legacy):"))
	fmt.Fprintf(out, "    %-12s %s\n", "deploy", dim("Run the multi-repo deploy workflow (default command)"))
	fmt.Fprintf(out, "    %-12s %s\n", "status", dim("Show linked repositories"))
	fmt.Fprintf(out, "    %-12s %s\n", "pull", dim("Pull already-linked repositories"))
	fmt.Fprintf(out, "    %-12s %s\n", "activate", dim("Activate inactive objects"))
	fmt.Fprintf(out, "    %-12s %s\n", "discover", dim("Discover ADT services"))

	fmt.Fprintln(out)
	fmt.Fprintln(out, bold("Global flags:"))
	fmt.Fprintf(out, "    %-16s %s\n", "--json", dim("Machine-readable JSON output"))
	fmt.Fprintf(out, "    %-16s %s\n", "--no-color", dim("Disable ANSI color (also honors NO_COLOR)"))
	fmt.Fprintf(out, "    %-16s %s\n", "-v / -vv", dim("Info / debug logging"))
	fmt.Fprintf(out, "    %-16s %s\n", "--version", dim("Print the version and exit"))
	fmt.Fprintf(out, "    %-16s %s\n", "--help", dim("Show help (per group and per command too)"))

	fmt.Fprintln(out)
	fmt.Fprintln(out, dim(`Use "erpl-adt <group> --help" for a group's actions.`))
}
