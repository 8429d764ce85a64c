package cli

import (
	"os"
	"strconv"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/router"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

// NewSession builds a session from command flags, with saved credentials
// as fallback. Tests replace it with a factory returning a session.Fake.
var NewSession = newConcreteSession

// ConnectionParams is the resolved connection configuration for one
// invocation: flags override saved credentials, which override defaults.
type ConnectionParams struct {
	Host     string
	Port     int
	UseHTTPS bool
	Insecure bool
	User     string
	Password string
	Client   string
	Timeout  time.Duration
}

// ResolveConnection merges flags, the environment, and saved credentials
// into one ConnectionParams. Password resolution order: explicit flag >
// environment variable (--password-env, default SAP_PASSWORD) > saved
// credentials.
func ResolveConnection(args router.CommandArgs) (ConnectionParams, *apperr.Error) {
	creds, _ := LoadCredentials()

	p := ConnectionParams{Host: "localhost", Port: 50000, User: "DEVELOPER", Client: "001"}
	if creds != nil {
		p.Host = orDefault(creds.Host, p.Host)
		p.Port = creds.Port
		p.User = orDefault(creds.User, p.User)
		p.Password = creds.Password
		p.Client = orDefault(creds.Client, p.Client)
		p.UseHTTPS = creds.UseHTTPS
	}

	if v := args.Flag("host", ""); v != "" {
		p.Host = v
	}
	if v := args.Flag("port", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return p, apperr.New("Validation", apperr.KindInternal, "invalid --port: "+v)
		}
		p.Port = port
	}
	if args.HasFlag("https") {
		p.UseHTTPS = args.Flag("https", "") == "true"
	}
	p.Insecure = args.Flag("insecure", "") == "true"
	if v := args.Flag("user", ""); v != "" {
		p.User = v
	}
	if v := args.Flag("client", ""); v != "" {
		p.Client = v
	}

	if v := args.Flag("password", ""); v != "" {
		p.Password = v
	} else {
		envVar := args.Flag("password-env", "SAP_PASSWORD")
		if env := os.Getenv(envVar); env != "" {
			p.Password = env
		}
		// Saved-credential password already populated above stays the last
		// resort.
	}

	if v := args.Flag("timeout", ""); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return p, apperr.New("Validation", apperr.KindInternal, "invalid --timeout: "+v)
		}
		p.Timeout = time.Duration(seconds) * time.Second
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func newConcreteSession(args router.CommandArgs) (session.Session, *apperr.Error) {
	p, err := ResolveConnection(args)
	if err != nil {
		return nil, err
	}

	client, verr := types.NewSapClient(p.Client)
	if verr != nil {
		return nil, apperr.New("Validation", apperr.KindInternal, "invalid SAP client: "+verr.Error())
	}

	opts := session.Options{DisableTLSVerify: p.Insecure}
	if p.Timeout > 0 {
		opts.ReadTimeout = p.Timeout
	}
	s := session.New(p.Host, p.Port, p.UseHTTPS, p.User, p.Password, client, opts)

	// A session file carries the stateful context of a prior lock across
	// invocations (the persistent lock/unlock handoff).
	if path := args.Flag("session-file", ""); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if loadErr := s.LoadSession(path); loadErr != nil {
				return nil, loadErr
			}
		}
	}
	return s, nil
}

// maybeSaveSession persists the session state when --session-file is set.
func maybeSaveSession(s session.Session, args router.CommandArgs) {
	if path := args.Flag("session-file", ""); path != "" {
		_ = s.SaveSession(path)
	}
}

// maybeDeleteSessionFile removes the session file after the lock flow
// completes (post-unlock).
func maybeDeleteSessionFile(args router.CommandArgs) {
	if path := args.Flag("session-file", ""); path != "" {
		_ = os.Remove(path)
	}
}
