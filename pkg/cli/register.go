package cli

import (
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/router"
)

// NewStyleGroups is the set of router-dispatched command groups; anything
// else at the first positional falls back to the legacy deploy workflow.
var NewStyleGroups = map[string]bool{
	"search": true, "object": true, "source": true, "test": true,
	"check": true, "transport": true, "ddic": true, "package": true,
	"discover": true,
}

// IsNewStyleCommand reports whether the first positional argument (after
// global flags) names a router group.
func IsNewStyleCommand(argv []string) bool {
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "-v" || arg == "-vv" {
			continue
		}
		if strings.HasPrefix(arg, "--") {
			if !strings.Contains(arg, "=") && !router.IsBooleanFlag(arg) && i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--") {
				i++
			}
			continue
		}
		return NewStyleGroups[arg]
	}
	return false
}

var connectionFlags = []router.FlagHelp{
	{Name: "--host", Description: "SAP host (default: saved credentials or localhost)"},
	{Name: "--port", Description: "SAP port (default: 50000)"},
	{Name: "--client", Description: "SAP client (default: 001)"},
	{Name: "--user", Description: "SAP user (default: DEVELOPER)"},
	{Name: "--password", Description: "SAP password (prefer --password-env or login)"},
	{Name: "--password-env", Description: "Environment variable holding the password (default: SAP_PASSWORD)"},
	{Name: "--https", Description: "Use HTTPS"},
	{Name: "--insecure", Description: "Skip TLS certificate verification"},
	{Name: "--timeout", Description: "Read timeout in seconds"},
	{Name: "--json", Description: "Machine-readable JSON output"},
	{Name: "--no-color", Description: "Disable ANSI color"},
}

func withConnectionFlags(extra ...router.FlagHelp) []router.FlagHelp {
	return append(extra, connectionFlags...)
}

// RegisterAllCommands wires every new-style command group into the router,
// including per-command help, group descriptions, examples, and default
// actions.
func RegisterAllCommands(r *router.Router) {
	// search
	r.Register("search", "query", "Search for ABAP objects by name pattern", HandleSearchQuery, &router.CommandHelp{
		Usage:           "erpl-adt search <pattern> [--type=CLAS] [--max=N]",
		ArgsDescription: "<pattern>    Search pattern with wildcards (e.g., ZCL_*)",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--type", Description: "Filter by object type (CLAS, PROG, TABL, ...)"},
			router.FlagHelp{Name: "--max", Description: "Maximum number of results (default: 100)"},
		),
		Examples: []string{
			"erpl-adt search ZCL_*",
			"erpl-adt --json search ZCL_* --type=CLAS --max=10",
		},
	})
	r.SetGroupDescription("search", "Search the ABAP repository")
	r.SetDefaultAction("search", "query")
	r.SetGroupExamples("search", []string{
		"$ erpl-adt search ZCL_*",
		"$ erpl-adt --json search ZCL_* --type=CLAS",
	})

	// object
	r.Register("object", "read", "Read object metadata and structure", HandleObjectRead, &router.CommandHelp{
		Usage:           "erpl-adt object read <uri>",
		ArgsDescription: "<uri>    ADT object URI (e.g., /sap/bc/adt/oo/classes/ZCL_EXAMPLE)",
		Flags:           withConnectionFlags(router.FlagHelp{Name: "--copy", Description: "Copy the object URI to the clipboard"}),
		Examples: []string{
			"erpl-adt object read /sap/bc/adt/oo/classes/ZCL_EXAMPLE",
			"erpl-adt --json object read /sap/bc/adt/programs/programs/ZREPORT",
		},
	})
	r.Register("object", "create", "Create a new repository object", HandleObjectCreate, &router.CommandHelp{
		Usage: "erpl-adt object create --type <type> --name <name> --package <pkg>",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--type", Description: "Object type (e.g., CLAS/OC, PROG/P)"},
			router.FlagHelp{Name: "--name", Description: "Object name"},
			router.FlagHelp{Name: "--package", Description: "Target package"},
			router.FlagHelp{Name: "--description", Description: "Object description"},
			router.FlagHelp{Name: "--transport", Description: "Transport request number"},
		),
		Examples: []string{
			"erpl-adt object create --type CLAS/OC --name ZCL_NEW --package ZTEST",
		},
	})
	r.Register("object", "delete", "Delete a repository object (auto-lock unless --handle)", HandleObjectDelete, &router.CommandHelp{
		Usage:           "erpl-adt object delete <uri> [--transport=N] [--handle=H]",
		ArgsDescription: "<uri>    ADT object URI",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--transport", Description: "Transport request number"},
			router.FlagHelp{Name: "--handle", Description: "Existing lock handle (skips auto-lock)"},
		),
		Examples: []string{
			"erpl-adt object delete /sap/bc/adt/oo/classes/ZCL_OLD",
			"erpl-adt object delete /sap/bc/adt/oo/classes/ZCL_OLD --transport=NPLK900001",
		},
	})
	r.Register("object", "lock", "Lock an object for editing", HandleObjectLock, &router.CommandHelp{
		Usage:           "erpl-adt object lock <uri> [--session-file=PATH]",
		ArgsDescription: "<uri>    ADT object URI",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--session-file", Description: "Persist the stateful session for a later unlock"},
			router.FlagHelp{Name: "--copy", Description: "Copy the lock handle to the clipboard"},
		),
		Examples: []string{
			"erpl-adt object lock /sap/bc/adt/oo/classes/ZCL_TEST",
			"erpl-adt --json object lock /sap/bc/adt/oo/classes/ZCL_TEST --session-file=session.json",
		},
	})
	r.Register("object", "unlock", "Unlock a previously locked object", HandleObjectUnlock, &router.CommandHelp{
		Usage:           "erpl-adt object unlock <uri> --handle=H [--session-file=PATH]",
		ArgsDescription: "<uri>    ADT object URI",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--handle", Description: "Lock handle from object lock"},
			router.FlagHelp{Name: "--session-file", Description: "Session file written by object lock (deleted after unlock)"},
		),
		Examples: []string{
			"erpl-adt object unlock /sap/bc/adt/oo/classes/ZCL_TEST --handle=LOCK_HANDLE",
		},
	})
	r.SetGroupDescription("object", "Work with repository objects")
	r.SetDefaultAction("object", "read")
	r.SetGroupExamples("object", []string{
		"$ erpl-adt object read /sap/bc/adt/oo/classes/ZCL_EXAMPLE",
		"$ erpl-adt --json object lock /sap/bc/adt/oo/classes/ZCL_TEST --session-file=s.json",
		"$ erpl-adt object unlock /sap/bc/adt/oo/classes/ZCL_TEST --handle=H --session-file=s.json",
	})

	// source
	r.Register("source", "read", "Read object source code", HandleSourceRead, &router.CommandHelp{
		Usage:           "erpl-adt source read <uri> [--version=active|inactive]",
		ArgsDescription: "<uri>    Source URI (e.g., /sap/bc/adt/oo/classes/zcl_test/source/main)",
		Flags:           withConnectionFlags(router.FlagHelp{Name: "--version", Description: "Source version: active (default) or inactive"}),
		Examples: []string{
			"erpl-adt source read /sap/bc/adt/oo/classes/zcl_test/source/main",
			"erpl-adt source read /sap/bc/adt/oo/classes/zcl_test/source/main --version=inactive",
		},
	})
	r.Register("source", "write", "Write object source code (auto-lock unless --handle)", HandleSourceWrite, &router.CommandHelp{
		Usage:           "erpl-adt source write <uri> --file <path> [--handle=H] [--transport=N]",
		ArgsDescription: "<uri>    Source URI (e.g., /sap/bc/adt/oo/classes/zcl_test/source/main)",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--file", Description: "File containing the complete new source"},
			router.FlagHelp{Name: "--handle", Description: "Existing lock handle (skips auto-lock)"},
			router.FlagHelp{Name: "--transport", Description: "Transport request number"},
			router.FlagHelp{Name: "--session-file", Description: "Persist session state after write (with --handle)"},
		),
		Examples: []string{
			"erpl-adt source write /sap/bc/adt/oo/classes/zcl_test/source/main --file=source.abap",
			"erpl-adt source write /sap/bc/adt/oo/classes/zcl_test/source/main --file=source.abap --handle=LOCK_HANDLE --transport=NPLK900001",
		},
	})
	r.Register("source", "check", "Run a syntax check over a source object", HandleSourceCheck, &router.CommandHelp{
		Usage:           "erpl-adt source check <uri>",
		ArgsDescription: "<uri>    Source URI",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt source check /sap/bc/adt/oo/classes/zcl_test/source/main",
			"erpl-adt --json source check /sap/bc/adt/oo/classes/zcl_test/source/main",
		},
	})
	r.SetGroupDescription("source", "Read, write, and check ABAP source")
	r.SetDefaultAction("source", "read")
	r.SetGroupExamples("source", []string{
		"$ erpl-adt source read /sap/bc/adt/oo/classes/zcl_test/source/main",
		"$ erpl-adt source write /sap/bc/adt/oo/classes/zcl_test/source/main --file=source.abap",
		"$ erpl-adt source check /sap/bc/adt/oo/classes/zcl_test/source/main",
	})

	// test
	r.Register("test", "run", "Run ABAP Unit tests", HandleTestRun, &router.CommandHelp{
		Usage:           "erpl-adt test run <uri>",
		ArgsDescription: "<uri>    Object or package URI",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt test run /sap/bc/adt/oo/classes/ZCL_TEST",
			"erpl-adt --json test run /sap/bc/adt/oo/classes/ZCL_TEST",
		},
	})
	r.SetGroupDescription("test", "Run ABAP Unit tests")
	r.SetDefaultAction("test", "run")
	r.SetGroupExamples("test", []string{
		"$ erpl-adt test run /sap/bc/adt/oo/classes/ZCL_TEST",
		"$ erpl-adt --json test run /sap/bc/adt/oo/classes/ZCL_TEST",
	})

	// check
	r.Register("check", "run", "Run ATC quality checks", HandleCheckRun, &router.CommandHelp{
		Usage:           "erpl-adt check run <uri> [--variant=NAME]",
		ArgsDescription: "<uri>    Object or package URI",
		Flags:           withConnectionFlags(router.FlagHelp{Name: "--variant", Description: "ATC check variant (default: DEFAULT)"}),
		Examples: []string{
			"erpl-adt check run /sap/bc/adt/packages/ZTEST",
			"erpl-adt check run /sap/bc/adt/oo/classes/ZCL_TEST --variant=FUNCTIONAL_DB_ADDITION",
		},
	})
	r.SetGroupDescription("check", "Run ABAP Test Cockpit checks")
	r.SetDefaultAction("check", "run")
	r.SetGroupExamples("check", []string{
		"$ erpl-adt check run /sap/bc/adt/packages/ZTEST",
		"$ erpl-adt check run /sap/bc/adt/oo/classes/ZCL_TEST --variant=FUNCTIONAL_DB_ADDITION",
	})

	// transport
	r.Register("transport", "list", "List transport requests", HandleTransportList, &router.CommandHelp{
		Usage: "erpl-adt transport list [--user=NAME]",
		Flags: withConnectionFlags(router.FlagHelp{Name: "--user", Description: "Transport owner (default: DEVELOPER)"}),
		Examples: []string{
			"erpl-adt transport list",
			"erpl-adt --json transport list --user=DEVELOPER",
		},
	})
	r.Register("transport", "create", "Create a transport request", HandleTransportCreate, &router.CommandHelp{
		Usage: "erpl-adt transport create --desc <text> --package <pkg>",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--desc", Description: "Transport description"},
			router.FlagHelp{Name: "--package", Description: "Target package"},
		),
		Examples: []string{
			"erpl-adt transport create --desc \"Feature work\" --package ZTEST",
		},
	})
	r.Register("transport", "release", "Release a transport request", HandleTransportRelease, &router.CommandHelp{
		Usage:           "erpl-adt transport release <number>",
		ArgsDescription: "<number>    Transport number (e.g., NPLK900001)",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt transport release NPLK900001",
		},
	})
	r.SetGroupDescription("transport", "Manage transport requests")
	r.SetDefaultAction("transport", "list")

	// ddic
	r.Register("ddic", "table", "Read a table definition", HandleDdicTable, &router.CommandHelp{
		Usage:           "erpl-adt ddic table <name>",
		ArgsDescription: "<name>    Table name (e.g., SFLIGHT)",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt ddic table SFLIGHT",
		},
	})
	r.Register("ddic", "cds", "Read a CDS view source", HandleDdicCds, &router.CommandHelp{
		Usage:           "erpl-adt ddic cds <name>",
		ArgsDescription: "<name>    CDS view name",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt ddic cds ZV_FLIGHTS",
		},
	})
	r.SetGroupDescription("ddic", "Inspect DDIC artifacts")
	r.SetDefaultAction("ddic", "table")

	// package
	r.Register("package", "list", "List a package's contents (one level)", HandlePackageList, &router.CommandHelp{
		Usage:           "erpl-adt package list <name>",
		ArgsDescription: "<name>    Package name",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt package list ZTEST",
		},
	})
	r.Register("package", "tree", "List a package hierarchy recursively", HandlePackageTree, &router.CommandHelp{
		Usage:           "erpl-adt package tree <name> [--type=CLAS] [--max-depth=N]",
		ArgsDescription: "<name>    Root package name",
		Flags: withConnectionFlags(
			router.FlagHelp{Name: "--type", Description: "Filter by object type prefix"},
			router.FlagHelp{Name: "--max-depth", Description: "Maximum recursion depth (default: 50)"},
		),
		Examples: []string{
			"erpl-adt package tree ZTEST --type=CLAS",
		},
	})
	r.Register("package", "exists", "Check whether a package exists", HandlePackageExists, &router.CommandHelp{
		Usage:           "erpl-adt package exists <name>",
		ArgsDescription: "<name>    Package name",
		Flags:           withConnectionFlags(),
		Examples: []string{
			"erpl-adt package exists ZTEST",
		},
	})
	r.SetGroupDescription("package", "Inspect ABAP packages")
	r.SetDefaultAction("package", "list")

	// discover
	r.Register("discover", "services", "Discover ADT services and capabilities", HandleDiscoverServices, &router.CommandHelp{
		Usage: "erpl-adt discover",
		Flags: withConnectionFlags(),
		Examples: []string{
			"erpl-adt discover",
			"erpl-adt --json discover",
		},
	})
	r.SetGroupDescription("discover", "Discover server capabilities")
	r.SetDefaultAction("discover", "services")
}
