// Package router implements the CLI's textual dispatch layer: commands are
// registered per (group, action) pair, argv is parsed into positionals and
// --key/--key=value flags, and dispatch resolves default actions and the
// several --help positions before calling the handler. The MCP tool
// registry reuses the same handler functions through pkg/mcpserver; this
// package owns only the argv-facing half.
package router

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// booleanFlags is the closed set of flags that never consume the next
// token.
var booleanFlags = map[string]bool{
	"color": true, "no-color": true, "json": true, "https": true,
	"insecure": true, "help": true, "raw": true, "datasource": true,
	"search-desc": true, "own-only": true, "simulate": true,
	"validate": true, "background": true, "force": true, "no-search": true,
	"copy": true,
}

// IsBooleanFlag reports whether --name is a value-less flag.
func IsBooleanFlag(name string) bool { return booleanFlags[strings.TrimPrefix(name, "--")] }

// CommandArgs is the parsed invocation a handler receives.
type CommandArgs struct {
	Group      string
	Action     string
	Positional []string
	Flags      map[string]string
}

// Flag returns the named flag's value, or def when absent.
func (a CommandArgs) Flag(name, def string) string {
	if v, ok := a.Flags[name]; ok {
		return v
	}
	return def
}

// HasFlag reports whether the named flag was given at all.
func (a CommandArgs) HasFlag(name string) bool {
	_, ok := a.Flags[name]
	return ok
}

// JsonMode reports whether --json was given.
func (a CommandArgs) JsonMode() bool { return a.Flag("json", "") == "true" }

// CommandHandler executes one command and returns the process exit code.
type CommandHandler func(args CommandArgs) int

// FlagHelp documents one flag for a command's help text.
type FlagHelp struct {
	Name        string
	Description string
}

// CommandHelp is the optional per-command help block.
type CommandHelp struct {
	Usage           string
	ArgsDescription string
	Flags           []FlagHelp
	Examples        []string
}

// CommandInfo is one registered command.
type CommandInfo struct {
	Group       string
	Action      string
	Description string
	Handler     CommandHandler
	Help        *CommandHelp
}

// Router maps (group, action) pairs onto handlers, with per-group default
// actions, descriptions, and examples.
type Router struct {
	commands          map[string]CommandInfo
	groupDescriptions map[string]string
	groupExamples     map[string][]string
	defaultActions    map[string]string

	// Out and ErrOut default to stdout/stderr; tests redirect them.
	Out    io.Writer
	ErrOut io.Writer
}

// New constructs an empty Router writing to stdout/stderr.
func New() *Router {
	return &Router{
		commands:          map[string]CommandInfo{},
		groupDescriptions: map[string]string{},
		groupExamples:     map[string][]string{},
		defaultActions:    map[string]string{},
		Out:               os.Stdout,
		ErrOut:            os.Stderr,
	}
}

func key(group, action string) string { return group + ":" + action }

// Register adds a command; help may be nil.
func (r *Router) Register(group, action, description string, handler CommandHandler, help *CommandHelp) {
	r.commands[key(group, action)] = CommandInfo{
		Group: group, Action: action, Description: description,
		Handler: handler, Help: help,
	}
}

// SetGroupDescription sets the one-line description shown in group help.
func (r *Router) SetGroupDescription(group, description string) {
	r.groupDescriptions[group] = description
}

// SetGroupExamples sets the examples block shown in group help.
func (r *Router) SetGroupExamples(group string, examples []string) {
	r.groupExamples[group] = examples
}

// SetDefaultAction lets `erpl-adt <group> <args>` route to the given action.
func (r *Router) SetDefaultAction(group, action string) {
	r.defaultActions[group] = action
}

// Groups returns the sorted set of registered groups.
func (r *Router) Groups() []string {
	seen := map[string]bool{}
	var groups []string
	for _, info := range r.commands {
		if !seen[info.Group] {
			seen[info.Group] = true
			groups = append(groups, info.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// HasGroup reports whether any command is registered under group.
func (r *Router) HasGroup(group string) bool {
	for _, info := range r.commands {
		if info.Group == group {
			return true
		}
	}
	return false
}

// CommandsForGroup returns the group's commands sorted by action.
func (r *Router) CommandsForGroup(group string) []CommandInfo {
	var result []CommandInfo
	for _, info := range r.commands {
		if info.Group == group {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Action < result[j].Action })
	return result
}

// Parse splits argv (without the program name) into group, action,
// positionals, and flags. Global flags before the group token land in the
// same flag map. The action may be absent when the next token is a flag.
func Parse(argv []string) (CommandArgs, error) {
	args := CommandArgs{Flags: map[string]string{}}

	i := 0
	// Global flags before the group token.
	for i < len(argv) {
		arg := argv[i]
		if arg == "-v" || arg == "-vv" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "--") {
			i = consumeFlag(argv, i, args.Flags)
			continue
		}
		break
	}

	if i >= len(argv) {
		return args, fmt.Errorf("Missing command group. Usage: erpl-adt <group> <action> [args]")
	}
	args.Group = argv[i]
	i++

	if i >= len(argv) {
		return args, fmt.Errorf("Missing action for group '%s'. Usage: erpl-adt %s <action> [args]", args.Group, args.Group)
	}
	if strings.HasPrefix(argv[i], "--") {
		args.Action = ""
	} else {
		args.Action = argv[i]
		i++
	}

	for i < len(argv) {
		arg := argv[i]
		if strings.HasPrefix(arg, "--") {
			i = consumeFlag(argv, i, args.Flags)
			continue
		}
		args.Positional = append(args.Positional, arg)
		i++
	}
	return args, nil
}

// consumeFlag stores argv[i] (a --flag) into flags and returns the next
// index to read.
func consumeFlag(argv []string, i int, flags map[string]string) int {
	arg := argv[i]
	if eq := strings.IndexByte(arg, '='); eq >= 0 {
		flags[arg[2:eq]] = arg[eq+1:]
		return i + 1
	}
	name := arg[2:]
	if IsBooleanFlag(arg) {
		flags[name] = "true"
		return i + 1
	}
	if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--") {
		flags[name] = argv[i+1]
		return i + 2
	}
	flags[name] = "true"
	return i + 1
}

func hasJsonFlag(argv []string) bool {
	for _, a := range argv {
		if a == "--json" {
			return true
		}
	}
	return false
}

func (r *Router) printJsonError(message string) {
	fmt.Fprintf(r.ErrOut, `{"error":{"message":%q}}`+"\n", message)
}

// Dispatch parses argv and runs the resolved handler, returning the
// process exit code. All of the help positions (--help as action, --help
// in flags, missing action with no default) are resolved here.
func (r *Router) Dispatch(argv []string) int {
	jsonMode := hasJsonFlag(argv)
	args, err := Parse(argv)
	if err != nil {
		msg := err.Error()
		// "Missing action" with a known group shows group help instead.
		if strings.HasPrefix(msg, "Missing action for group '") {
			group := args.Group
			if r.HasGroup(group) {
				if jsonMode {
					r.printJsonError(fmt.Sprintf("Missing action for group '%s'", group))
				} else {
					r.PrintGroupHelp(group, r.Out)
				}
				return 0
			}
		}
		if jsonMode {
			r.printJsonError(msg)
		} else {
			fmt.Fprintf(r.ErrOut, "Error: %s\n", msg)
			r.PrintHelp(r.ErrOut)
		}
		return 1
	}

	jsonMode = jsonMode || args.JsonMode()

	if args.Action == "" {
		if args.HasFlag("help") {
			if r.HasGroup(args.Group) {
				r.PrintGroupHelp(args.Group, r.Out)
				return 0
			}
			if jsonMode {
				r.printJsonError("Unknown command group '" + args.Group + "'")
			} else {
				fmt.Fprintf(r.ErrOut, "Error: unknown command group '%s'\n", args.Group)
				r.PrintHelp(r.ErrOut)
			}
			return 1
		}
		def, ok := r.defaultActions[args.Group]
		if !ok {
			if jsonMode {
				r.printJsonError("Missing action for group '" + args.Group + "'")
			} else {
				fmt.Fprintf(r.ErrOut, "Error: Missing action for group '%s'. Usage: erpl-adt %s <action> [args]\n", args.Group, args.Group)
				r.PrintHelp(r.ErrOut)
			}
			return 1
		}
		args.Action = def
	}

	if args.Action == "--help" || args.Action == "-h" || args.Action == "help" {
		if r.HasGroup(args.Group) {
			r.PrintGroupHelp(args.Group, r.Out)
			return 0
		}
		if jsonMode {
			r.printJsonError("Unknown command group '" + args.Group + "'")
		} else {
			fmt.Fprintf(r.ErrOut, "Error: unknown command group '%s'\n", args.Group)
			r.PrintHelp(r.ErrOut)
		}
		return 1
	}

	if args.HasFlag("help") {
		if _, ok := r.commands[key(args.Group, args.Action)]; ok {
			r.PrintCommandHelp(args.Group, args.Action, r.Out)
		} else if r.HasGroup(args.Group) {
			r.PrintGroupHelp(args.Group, r.Out)
		} else {
			if jsonMode {
				r.printJsonError("Unknown command '" + args.Group + " " + args.Action + "'")
			} else {
				fmt.Fprintf(r.ErrOut, "Error: unknown command '%s %s'\n", args.Group, args.Action)
				r.PrintHelp(r.ErrOut)
			}
			return 1
		}
		return 0
	}

	info, ok := r.commands[key(args.Group, args.Action)]

	// Default-action fallback: the parsed "action" was really the first
	// positional argument.
	if !ok {
		if def, hasDef := r.defaultActions[args.Group]; hasDef {
			args.Positional = append([]string{args.Action}, args.Positional...)
			args.Action = def
			info, ok = r.commands[key(args.Group, args.Action)]
		}
	}

	if !ok {
		if jsonMode {
			r.printJsonError("Unknown command '" + args.Group + " " + args.Action + "'")
		} else {
			fmt.Fprintf(r.ErrOut, "Error: unknown command '%s %s'\n", args.Group, args.Action)
			if r.HasGroup(args.Group) {
				r.PrintGroupHelp(args.Group, r.ErrOut)
			} else {
				r.PrintHelp(r.ErrOut)
			}
		}
		return 1
	}

	return info.Handler(args)
}

// PrintHelp writes the top-level command overview.
func (r *Router) PrintHelp(out io.Writer) {
	fmt.Fprintf(out, "\nUsage: erpl-adt <group> <action> [options]\n\n")
	fmt.Fprintf(out, "Available commands:\n")
	for _, group := range r.Groups() {
		fmt.Fprintf(out, "\n  %s:\n", group)
		for _, cmd := range r.CommandsForGroup(group) {
			fmt.Fprintf(out, "    %s", cmd.Action)
			if cmd.Description != "" {
				fmt.Fprintf(out, " - %s", cmd.Description)
			}
			fmt.Fprintln(out)
		}
	}
	fmt.Fprintln(out)
}

// PrintGroupHelp writes one group's actions, examples, and shorthand note.
func (r *Router) PrintGroupHelp(group string, out io.Writer) {
	desc := r.groupDescriptions[group]
	if desc == "" {
		desc = group
	}
	fmt.Fprintf(out, "erpl-adt %s - %s\n", group, desc)

	fmt.Fprintf(out, "\nActions:\n")
	cmds := r.CommandsForGroup(group)
	maxLen := 0
	for _, cmd := range cmds {
		if len(cmd.Action) > maxLen {
			maxLen = len(cmd.Action)
		}
	}
	for _, cmd := range cmds {
		fmt.Fprintf(out, "  %s%s%s\n", cmd.Action, strings.Repeat(" ", maxLen-len(cmd.Action)+6), cmd.Description)
	}

	if examples := r.groupExamples[group]; len(examples) > 0 {
		fmt.Fprintf(out, "\nExamples:\n")
		for _, ex := range examples {
			fmt.Fprintf(out, "  %s\n", ex)
		}
	}

	if def, ok := r.defaultActions[group]; ok {
		fmt.Fprintf(out, "\nShorthand: the '%s' action is the default, so 'erpl-adt %s <args>' is equivalent to 'erpl-adt %s %s <args>'.\n", def, group, group, def)
	}

	fmt.Fprintf(out, "\nUse \"erpl-adt %s <action> --help\" for details on a specific action.\n", group)
}

// PrintCommandHelp writes one command's usage, flags, and examples.
func (r *Router) PrintCommandHelp(group, action string, out io.Writer) {
	info, ok := r.commands[key(group, action)]
	if !ok {
		fmt.Fprintf(out, "Error: unknown command '%s %s'\n", group, action)
		return
	}
	fmt.Fprintf(out, "erpl-adt %s %s - %s\n", group, action, info.Description)
	if info.Help == nil {
		return
	}
	if info.Help.Usage != "" {
		fmt.Fprintf(out, "\nUsage:\n  %s\n", info.Help.Usage)
	}
	if info.Help.ArgsDescription != "" {
		fmt.Fprintf(out, "\nArguments:\n  %s\n", info.Help.ArgsDescription)
	}
	if len(info.Help.Flags) > 0 {
		fmt.Fprintf(out, "\nFlags:\n")
		maxLen := 0
		for _, f := range info.Help.Flags {
			if len(f.Name) > maxLen {
				maxLen = len(f.Name)
			}
		}
		for _, f := range info.Help.Flags {
			fmt.Fprintf(out, "  %s%s%s\n", f.Name, strings.Repeat(" ", maxLen-len(f.Name)+4), f.Description)
		}
	}
	if len(info.Help.Examples) > 0 {
		fmt.Fprintf(out, "\nExamples:\n")
		for _, ex := range info.Help.Examples {
			fmt.Fprintf(out, "  %s\n", ex)
		}
	}
}
