package router

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/termcolor"
)

// Formatter renders command results either as machine JSON or as a human
// table, with errors always on the error stream. One Formatter serves one
// command invocation.
type Formatter struct {
	JsonMode bool
	Profile  termcolor.Profile

	Out    io.Writer
	ErrOut io.Writer
}

// NewFormatter builds a Formatter for one command invocation. Color is
// decided once from stdout and applies to both streams; JSON mode disables
// it entirely.
func NewFormatter(jsonMode, noColor bool) *Formatter {
	return &Formatter{
		JsonMode: jsonMode,
		Profile:  termcolor.DetectStdout(noColor || jsonMode),
		Out:      os.Stdout,
		ErrOut:   os.Stderr,
	}
}

// PrintJson encodes v as JSON and writes it followed by a newline.
func (f *Formatter) PrintJson(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(f.ErrOut, `{"error":{"message":%q}}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(f.Out, string(data))
}

// PrintSuccess writes a success line (human mode only).
func (f *Formatter) PrintSuccess(message string) {
	fmt.Fprintln(f.Out, f.Profile.Render(f.Profile.Styles.Success, message))
}

// PrintLine writes a plain line to the output stream.
func (f *Formatter) PrintLine(message string) {
	fmt.Fprintln(f.Out, message)
}

// PrintError writes a structured error: JSON object in JSON mode, the
// human rendering otherwise. Errors always go to the error stream.
func (f *Formatter) PrintError(err *apperr.Error) {
	if f.JsonMode {
		payload := map[string]any{"error": err, "exit_code": err.ExitCode()}
		data, merr := json.Marshal(payload)
		if merr != nil {
			fmt.Fprintf(f.ErrOut, `{"error":{"message":%q}}`+"\n", err.Message)
			return
		}
		fmt.Fprintln(f.ErrOut, string(data))
		return
	}
	fmt.Fprintln(f.ErrOut, f.Profile.Render(f.Profile.Styles.Error, "Error: "+err.ToString()))
}

// PrintValidationError reports a pre-session validation failure and
// returns the internal exit code for the caller to propagate.
func (f *Formatter) PrintValidationError(message string) int {
	err := apperr.New("Validation", apperr.KindInternal, message)
	f.PrintError(err)
	return err.ExitCode()
}

// PrintTable writes a column-aligned table with a header row.
func (f *Formatter) PrintTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header strings.Builder
	for i, h := range headers {
		header.WriteString(pad(h, widths[i]))
		if i < len(headers)-1 {
			header.WriteString("  ")
		}
	}
	fmt.Fprintln(f.Out, f.Profile.Render(f.Profile.Styles.Bold, header.String()))

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				line.WriteString(pad(cell, widths[i]))
			} else {
				line.WriteString(cell)
			}
			if i < len(row)-1 {
				line.WriteString("  ")
			}
		}
		fmt.Fprintln(f.Out, line.String())
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
