package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/deploy"
	"github.com/erpl-adt/erpl-adt/pkg/logging"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/termcolor"
)

// NewDeploySession builds the session the deploy workflow runs against.
// Tests replace it with a factory returning a session.Fake.
var NewDeploySession = func(config deploy.AppConfig) session.Session {
	return session.New(
		config.Connection.Host,
		int(config.Connection.Port),
		config.Connection.UseHttps,
		config.Connection.User,
		config.Connection.Password,
		config.Connection.Client,
		session.Options{},
	)
}

// parseDeploySubcommand maps the first argv token onto a workflow
// subcommand; anything else falls back to deploy with no token consumed.
func parseDeploySubcommand(argv []string) (deploy.Subcommand, bool) {
	if len(argv) == 0 {
		return deploy.SubcommandDeploy, false
	}
	switch argv[0] {
	case "deploy":
		return deploy.SubcommandDeploy, true
	case "status":
		return deploy.SubcommandStatus, true
	case "pull":
		return deploy.SubcommandPull, true
	case "activate":
		return deploy.SubcommandActivate, true
	case "discover":
		return deploy.SubcommandDiscover, true
	default:
		return deploy.SubcommandDeploy, false
	}
}

func printDeployError(err *apperr.Error, jsonOutput bool) {
	if jsonOutput {
		payload, merr := json.Marshal(map[string]any{"error": err, "exit_code": err.ExitCode()})
		if merr == nil {
			fmt.Fprintln(os.Stderr, string(payload))
			return
		}
	}
	profile := termcolor.DetectStderr(false)
	fmt.Fprintln(os.Stderr, profile.Render(profile.Styles.Error, "Error: "+err.ToString()))
}

func printDeployResult(result deploy.DeployResult, jsonOutput, quiet bool) {
	if jsonOutput {
		repos := make([]map[string]any, 0, len(result.RepoResults))
		for _, r := range result.RepoResults {
			repos = append(repos, map[string]any{
				"name":       r.RepoName,
				"success":    r.Success,
				"message":    r.Message,
				"elapsed_ms": r.Elapsed.Milliseconds(),
			})
		}
		payload, err := json.Marshal(map[string]any{
			"success": result.Success,
			"repos":   repos,
			"summary": result.Summary,
		})
		if err == nil {
			fmt.Fprintln(os.Stdout, string(payload))
		}
		return
	}
	if quiet {
		return
	}

	profile := termcolor.DetectStdout(false)
	for _, r := range result.RepoResults {
		status := "OK"
		style := profile.Styles.Success
		if !r.Success {
			status = "FAILED"
			style = profile.Styles.Error
		}
		fmt.Fprintf(os.Stdout, "[%s] %s - %s (%dms)\n",
			profile.Render(style, status), r.RepoName, r.Message, r.Elapsed.Milliseconds())
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, result.Summary)
}

// RunDeploy is the legacy entry point: parse flags (and optional YAML
// config), validate, sort repos by dependency, run the workflow, print the
// result, and map failures onto stable exit codes.
func RunDeploy(argv []string) int {
	subcommand, hasToken := parseDeploySubcommand(argv)
	if hasToken {
		argv = argv[1:]
	}

	fs := pflag.NewFlagSet("erpl-adt", pflag.ContinueOnError)
	deploy.RegisterCliFlags(fs)
	if err := fs.Parse(argv); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		return 99
	}

	cliConfig, cerr := deploy.LoadFromCli(fs)
	if cerr != nil {
		printDeployError(cerr, cliConfig.JsonOutput)
		return cerr.ExitCode()
	}

	config := cliConfig
	if path, _ := fs.GetString("config"); path != "" {
		yamlConfig, yerr := deploy.LoadFromYaml(path)
		if yerr != nil {
			printDeployError(yerr, cliConfig.JsonOutput)
			return yerr.ExitCode()
		}
		config = deploy.MergeConfigs(yamlConfig, cliConfig)
	}

	config, perr := deploy.ResolvePasswordEnv(config)
	if perr != nil {
		printDeployError(perr, config.JsonOutput)
		return perr.ExitCode()
	}
	if verr := deploy.ValidateConfig(config); verr != nil {
		printDeployError(verr, config.JsonOutput)
		return verr.ExitCode()
	}

	sorted, serr := deploy.SortReposByDependency(config.Repos)
	if serr != nil {
		printDeployError(serr, config.JsonOutput)
		return serr.ExitCode()
	}
	config.Repos = sorted

	logging.Init(logging.Options{Verbose: config.Verbose, Quiet: config.Quiet, JSON: config.JsonOutput})

	s := NewDeploySession(config)
	workflow := deploy.NewWorkflow(s, config)
	result, werr := workflow.Execute(subcommand)
	if werr != nil {
		printDeployError(werr, config.JsonOutput)
		return werr.ExitCode()
	}

	printDeployResult(result, config.JsonOutput, config.Quiet)
	if !result.Success {
		return 99
	}
	return 0
}
