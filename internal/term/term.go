// Package term resolves whether ANSI colors should be used and applies that
// decision process-wide through fatih/color.
//
// [Configure] is called once during startup (from [logging.NewLogger]); after
// that every color.Color in the process honors the decision.
package term

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/backmassage/dashpack/internal/config"
)

// Configure resolves the color mode and sets color.NoColor accordingly.
func Configure(mode config.ColorMode) {
	color.NoColor = !resolve(mode)
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return !color.NoColor }

// resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
