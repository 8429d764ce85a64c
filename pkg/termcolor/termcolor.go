// Package termcolor decides whether the CLI's output should carry ANSI
// color and renders the small palette of status styles (success, error,
// warning, muted, accent) the router and deploy summary printers share.
// Detection is delegated to charmbracelet/colorprofile, whose result is set
// on a lipgloss renderer, rather than hand-rolled isatty/env checks, following the
// lipgloss renderer shared by the CLI's status and table output.
package termcolor

import (
	"io"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// toTermenvProfile converts a colorprofile.Profile (used for detection) into
// the termenv.Profile lipgloss's renderer expects. The two enums order their
// values differently, so this maps by meaning rather than by numeric value.
func toTermenvProfile(p colorprofile.Profile) termenv.Profile {
	switch p {
	case colorprofile.TrueColor:
		return termenv.TrueColor
	case colorprofile.ANSI256:
		return termenv.ANSI256
	case colorprofile.ANSI:
		return termenv.ANSI
	default:
		return termenv.Ascii
	}
}

// Styles is the fixed palette used across CLI output: success/error/
// warning status lines, muted secondary text, and an accent used for
// headings and prompts.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Bold    lipgloss.Style
}

// Profile wraps the detected ANSI capability together with the rendered
// Styles for one output stream.
type Profile struct {
	Enabled bool
	Styles  Styles

	renderer *lipgloss.Renderer
}

// Detect builds a Profile for w, honoring environ's NO_COLOR convention and
// forceDisable (the CLI's --no-color flag). environ is taken as a parameter
// rather than read from os.Environ() internally so callers can test
// detection deterministically.
func Detect(w io.Writer, environ []string, forceDisable bool) Profile {
	renderer := lipgloss.NewRenderer(w)

	profile := colorprofile.Detect(w, environ)
	if forceDisable {
		profile = colorprofile.Ascii
	}
	renderer.SetColorProfile(toTermenvProfile(profile))

	enabled := profile > colorprofile.Ascii
	return Profile{
		Enabled:  enabled,
		Styles:   buildStyles(renderer),
		renderer: renderer,
	}
}

// DetectStdout is the common case: decide color for os.Stdout using the
// live environment and a --no-color flag value.
func DetectStdout(noColorFlag bool) Profile {
	return Detect(os.Stdout, os.Environ(), noColorFlag)
}

// DetectStderr mirrors DetectStdout for error/status output, which the
// router writes separately from command results.
func DetectStderr(noColorFlag bool) Profile {
	return Detect(os.Stderr, os.Environ(), noColorFlag)
}

func buildStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("#73daca")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#6c6c6c")),
		Accent:  r.NewStyle().Foreground(lipgloss.Color("#7aa2f7")),
		Bold:    r.NewStyle().Bold(true),
	}
}

// Render applies style to text when color is enabled, otherwise returns
// text unmodified.
func (p Profile) Render(style lipgloss.Style, text string) string {
	if !p.Enabled {
		return text
	}
	return style.Render(text)
}
