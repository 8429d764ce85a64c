package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erpl-adt/erpl-adt/pkg/cli"
	"github.com/erpl-adt/erpl-adt/pkg/logging"
	"github.com/erpl-adt/erpl-adt/pkg/router"
	"github.com/erpl-adt/erpl-adt/pkg/termcolor"
)

// Version info (injected at build time).
var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "erpl-adt",
	Short: "CLI and MCP tool server for the SAP ADT REST API",
	Long: `erpl-adt drives SAP's ABAP Development Tools REST API and the BW
modeling surface layered over it: repository search, source round-tripping,
lock/edit workflows, abapGit clone/pull, unit tests and ATC checks,
transports, and BW metadata/lineage extraction. The same operations are
available as CLI commands and as MCP tools over stdin/stdout.`,
	// The router owns the positional-then-flag argv scheme, so
	// cobra's own flag parsing stays out of the way.
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Exit(dispatch(args))
		return nil
	},
}

func initConfig() {
	// Optional .env next to the working directory; absence is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}
	viper.SetEnvPrefix("ERPL_ADT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("erpl-adt")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()
}

// findFirstPositional skips global flags and returns the first positional
// token, or "".
func findFirstPositional(argv []string) string {
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
		return arg
	}
	return ""
}

func hasTopLevelHelp(argv []string) bool {
	for _, arg := range argv {
		if arg == "--help" || arg == "-h" {
			return true
		}
		if !strings.HasPrefix(arg, "-") {
			return false
		}
	}
	return false
}

func hasVersionFlag(argv []string) bool {
	for _, arg := range argv {
		if arg == "--version" {
			return true
		}
		if !strings.HasPrefix(arg, "-") {
			return false
		}
	}
	return false
}

func noColorRequested(argv []string) bool {
	for _, arg := range argv {
		if arg == "--no-color" || arg == "--color=false" {
			return true
		}
	}
	return false
}

func dispatch(argv []string) int {
	// --version before any parsing.
	if hasVersionFlag(argv) {
		fmt.Printf("erpl-adt %s (%s)\n", version, commit)
		return 0
	}

	newRouter := func() *router.Router {
		r := router.New()
		cli.RegisterAllCommands(r)
		return r
	}
	profile := termcolor.DetectStdout(noColorRequested(argv))

	// No arguments, or a top-level --help with no new-style group in
	// sight: the full overview.
	if len(argv) == 0 || (hasTopLevelHelp(argv) && !cli.IsNewStyleCommand(argv)) {
		cli.PrintTopLevelHelp(newRouter(), os.Stdout, profile)
		return 0
	}

	// Logging level from -v/-vv; JSON log encoding in --json mode keeps
	// stderr parseable next to stdout's JSON results.
	verbose := false
	jsonMode := false
	for _, arg := range argv {
		if arg == "-v" || arg == "-vv" {
			verbose = true
		}
		if arg == "--json" {
			jsonMode = true
		}
	}
	logging.Init(logging.Options{Verbose: verbose, Quiet: !verbose, JSON: jsonMode})

	switch findFirstPositional(argv) {
	case "login":
		if hasTopLevelHelp(argv) {
			cli.PrintLoginHelp(os.Stdout)
			return 0
		}
		return cli.HandleLogin(argv)
	case "logout":
		if hasTopLevelHelp(argv) {
			cli.PrintLogoutHelp(os.Stdout)
			return 0
		}
		return cli.HandleLogout(argv)
	case "mcp":
		return cli.RunMcpServer(argv, version)
	}

	if cli.IsNewStyleCommand(argv) {
		return newRouter().Dispatch(argv)
	}

	// Everything else is the legacy deploy workflow.
	return cli.RunDeploy(argv)
}

func main() {
	cobra.OnInitialize(initConfig)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(99)
	}
}
