package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for report elements. Colors are
// disabled automatically when the destination is not a terminal.
type ColorScheme struct {
	Label    func(format string, a ...interface{}) string
	Success  func(format string, a ...interface{}) string
	Error    func(format string, a ...interface{}) string
	Warning  func(format string, a ...interface{}) string
	Header   func(format string, a ...interface{}) string
	Value    func(format string, a ...interface{}) string
	Disabled bool
}

// NewColorScheme creates a color scheme for the given writer.
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !isTTY(w) {
		plain := color.New().Sprintf
		return &ColorScheme{
			Label:    plain,
			Success:  plain,
			Error:    plain,
			Warning:  plain,
			Header:   plain,
			Value:    plain,
			Disabled: true,
		}
	}

	return &ColorScheme{
		Label:   color.New(color.FgCyan, color.Bold).Sprintf,
		Success: color.New(color.FgGreen).Sprintf,
		Error:   color.New(color.FgRed, color.Bold).Sprintf,
		Warning: color.New(color.FgYellow).Sprintf,
		Header:  color.New(color.FgWhite, color.Bold).Sprintf,
		Value:   color.New(color.FgBlue).Sprintf,
	}
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// VerdictColor picks a color function for a recommendation tier.
func (cs *ColorScheme) VerdictColor(tier string) func(format string, a ...interface{}) string {
	switch tier {
	case "strong":
		return cs.Success
	case "moderate", "marginal":
		return cs.Warning
	default:
		return cs.Label
	}
}
