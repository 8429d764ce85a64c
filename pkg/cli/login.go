package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/erpl-adt/erpl-adt/pkg/router"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

// HandleLogin stores connection credentials in .adt.creds. With flags it
// is non-interactive; on a TTY with no flags it runs a small prompt
// wizard.
func HandleLogin(argv []string) int {
	args, _ := parseLoginFlags(argv)
	out := newFormatter(args)

	creds := SavedCredentials{Host: "localhost", Port: 50000, User: "DEVELOPER", Client: "001"}
	if existing, _ := LoadCredentials(); existing != nil {
		creds = *existing
	}

	hasFlags := args.HasFlag("host") || args.HasFlag("port") || args.HasFlag("user") ||
		args.HasFlag("password") || args.HasFlag("client") || args.HasFlag("https")

	if !hasFlags && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := runLoginWizard(os.Stdin, os.Stdout, &creds); err != nil {
			return out.PrintValidationError("login aborted: " + err.Error())
		}
	} else {
		if v := args.Flag("host", ""); v != "" {
			creds.Host = v
		}
		if v := args.Flag("port", ""); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil || port <= 0 || port > 65535 {
				return out.PrintValidationError("invalid --port: " + v)
			}
			creds.Port = port
		}
		if v := args.Flag("user", ""); v != "" {
			creds.User = v
		}
		if v := args.Flag("password", ""); v != "" {
			creds.Password = v
		} else if env := os.Getenv(args.Flag("password-env", "SAP_PASSWORD")); env != "" && creds.Password == "" {
			creds.Password = env
		}
		if v := args.Flag("client", ""); v != "" {
			creds.Client = v
		}
		if args.HasFlag("https") {
			creds.UseHTTPS = args.Flag("https", "") == "true"
		}
	}

	if _, err := types.NewSapClient(creds.Client); err != nil {
		return out.PrintValidationError("invalid SAP client: " + err.Error())
	}
	if err := SaveCredentials(creds); err != nil {
		return out.PrintValidationError("cannot write " + CredsFile + ": " + err.Error())
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"saved": true, "host": creds.Host, "user": creds.User, "client": creds.Client})
	} else {
		out.PrintSuccess(fmt.Sprintf("Credentials saved to %s (%s@%s:%d, client %s)", CredsFile, creds.User, creds.Host, creds.Port, creds.Client))
	}
	return 0
}

// runLoginWizard prompts for each connection field, keeping the current
// value on empty input.
func runLoginWizard(in io.Reader, out io.Writer, creds *SavedCredentials) error {
	reader := bufio.NewReader(in)
	prompt := func(label, current string) (string, error) {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return current, nil
		}
		return line, nil
	}

	var err error
	if creds.Host, err = prompt("Host", creds.Host); err != nil {
		return err
	}
	portStr, err := prompt("Port", strconv.Itoa(creds.Port))
	if err != nil {
		return err
	}
	if port, convErr := strconv.Atoi(portStr); convErr == nil && port > 0 && port <= 65535 {
		creds.Port = port
	}
	if creds.Client, err = prompt("Client", creds.Client); err != nil {
		return err
	}
	if creds.User, err = prompt("User", creds.User); err != nil {
		return err
	}
	masked := ""
	if creds.Password != "" {
		masked = "********"
	}
	password, err := prompt("Password", masked)
	if err != nil {
		return err
	}
	if password != masked {
		creds.Password = password
	}
	httpsStr, err := prompt("HTTPS (true/false)", strconv.FormatBool(creds.UseHTTPS))
	if err != nil {
		return err
	}
	creds.UseHTTPS = httpsStr == "true"
	return nil
}

// HandleLogout removes the credential file.
func HandleLogout(argv []string) int {
	args, _ := parseLoginFlags(argv)
	out := newFormatter(args)

	if err := DeleteCredentials(); err != nil {
		if os.IsNotExist(err) {
			out.PrintLine("No saved credentials.")
			return 0
		}
		return out.PrintValidationError("cannot remove " + CredsFile + ": " + err.Error())
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"logged_out": true})
	} else {
		out.PrintSuccess("Credentials removed.")
	}
	return 0
}

// parseLoginFlags parses bare flag argv (no group/action structure) into
// CommandArgs so login/logout share the flag helpers.
func parseLoginFlags(argv []string) (router.CommandArgs, error) {
	args := router.CommandArgs{Flags: map[string]string{}}
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "login" || arg == "logout" || arg == "-v" || arg == "-vv" {
			continue
		}
		if !strings.HasPrefix(arg, "--") {
			args.Positional = append(args.Positional, arg)
			continue
		}
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			args.Flags[arg[2:eq]] = arg[eq+1:]
			continue
		}
		name := arg[2:]
		if router.IsBooleanFlag(arg) {
			args.Flags[name] = "true"
			continue
		}
		if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--") {
			args.Flags[name] = argv[i+1]
			i++
			continue
		}
		args.Flags[name] = "true"
	}
	return args, nil
}

// PrintLoginHelp documents the login command.
func PrintLoginHelp(out io.Writer) {
	fmt.Fprint(out, `erpl-adt login - store connection credentials in `+CredsFile+`

Usage:
  erpl-adt login [--host H] [--port P] [--client C] [--user U] [--password PW] [--https]

Without flags on a terminal, an interactive wizard prompts for each field.
The file is written with owner-only permissions (0600).

Flags:
  --host            SAP host
  --port            SAP port (default: 50000)
  --client          SAP client (default: 001)
  --user            SAP user
  --password        SAP password (prefer --password-env)
  --password-env    Environment variable holding the password (default: SAP_PASSWORD)
  --https           Use HTTPS
`)
}

// PrintLogoutHelp documents the logout command.
func PrintLogoutHelp(out io.Writer) {
	fmt.Fprint(out, `erpl-adt logout - remove stored credentials

Usage:
  erpl-adt logout

Deletes `+CredsFile+` from the working directory.
`)
}
