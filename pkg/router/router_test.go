package router

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (*Router, *bytes.Buffer, *bytes.Buffer) {
	r := New()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	r.Out = out
	r.ErrOut = errOut
	return r, out, errOut
}

func TestParseGroupActionPositionalsAndFlags(t *testing.T) {
	args, err := Parse([]string{"source", "write", "/sap/bc/adt/oo/classes/z/source/main", "--file", "x.abap", "--transport=NPLK900001", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "source", args.Group)
	assert.Equal(t, "write", args.Action)
	assert.Equal(t, []string{"/sap/bc/adt/oo/classes/z/source/main"}, args.Positional)
	assert.Equal(t, "x.abap", args.Flags["file"])
	assert.Equal(t, "NPLK900001", args.Flags["transport"])
	assert.Equal(t, "true", args.Flags["json"])
}

func TestParseGlobalFlagsBeforeGroup(t *testing.T) {
	args, err := Parse([]string{"--json", "--host", "sap.example.com", "search", "ZCL_*"})
	require.NoError(t, err)
	assert.Equal(t, "search", args.Group)
	assert.Equal(t, "ZCL_*", args.Action)
	assert.Equal(t, "sap.example.com", args.Flags["host"])
	assert.Equal(t, "true", args.Flags["json"])
}

func TestParseBooleanFlagDoesNotConsumeNextToken(t *testing.T) {
	args, err := Parse([]string{"search", "query", "--json", "PATTERN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PATTERN"}, args.Positional)
}

func TestParseMissingGroup(t *testing.T) {
	_, err := Parse([]string{"--json"})
	require.Error(t, err)
}

func TestDispatchDefaultActionTreatsActionTokenAsPositional(t *testing.T) {
	r, _, _ := newTestRouter()
	var got CommandArgs
	r.Register("search", "query", "Search", func(args CommandArgs) int {
		got = args
		return 0
	}, nil)
	r.SetDefaultAction("search", "query")

	code := r.Dispatch([]string{"search", "ZCL_*"})
	assert.Equal(t, 0, code)
	assert.Equal(t, "query", got.Action)
	assert.Equal(t, []string{"ZCL_*"}, got.Positional)
}

func TestDispatchUnknownCommandJsonModeEmitsErrorObject(t *testing.T) {
	r, _, errOut := newTestRouter()
	r.Register("search", "query", "Search", func(CommandArgs) int { return 0 }, nil)

	code := r.Dispatch([]string{"--json", "search", "bogus-action", "x"})
	// With no default action registered, an unknown action is an error.
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), `"error"`)
}

func TestDispatchActionHelpPrintsGroupHelp(t *testing.T) {
	r, out, _ := newTestRouter()
	r.Register("object", "read", "Read object metadata", func(CommandArgs) int { return 7 }, nil)
	r.SetGroupDescription("object", "Work with repository objects")

	code := r.Dispatch([]string{"object", "--help"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "erpl-adt object - Work with repository objects")
	assert.Contains(t, out.String(), "read")
}

func TestDispatchCommandHelpFlag(t *testing.T) {
	r, out, _ := newTestRouter()
	r.Register("test", "run", "Run ABAP Unit tests", func(CommandArgs) int { return 7 }, &CommandHelp{
		Usage:    "erpl-adt test run <uri>",
		Examples: []string{"erpl-adt test run /sap/bc/adt/oo/classes/ZCL_TEST"},
	})

	code := r.Dispatch([]string{"test", "run", "--help"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "erpl-adt test run <uri>")
}

func TestDispatchMissingActionWithoutDefaultShowsGroupHelp(t *testing.T) {
	r, out, _ := newTestRouter()
	r.Register("transport", "list", "List transports", func(CommandArgs) int { return 0 }, nil)

	code := r.Dispatch([]string{"transport"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "list")
}

func TestDispatchRunsHandlerAndReturnsItsExitCode(t *testing.T) {
	r, _, _ := newTestRouter()
	r.Register("check", "run", "Run ATC", func(CommandArgs) int { return 8 }, nil)

	assert.Equal(t, 8, r.Dispatch([]string{"check", "run", "/sap/bc/adt/oo/classes/z"}))
}

func TestFormatterTableAlignsColumns(t *testing.T) {
	out := &bytes.Buffer{}
	f := &Formatter{Out: out, ErrOut: &bytes.Buffer{}}
	f.PrintTable([]string{"Name", "Type"}, [][]string{{"ZCL_A", "CLAS/OC"}, {"ZREPORT_LONG", "PROG/P"}})

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "Name")
	assert.Contains(t, string(lines[2]), "ZREPORT_LONG  PROG/P")
}
