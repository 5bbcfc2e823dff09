// Package display renders the console pieces that are not log lines: the
// startup banner, byte sizes, and the end-of-run tables.
package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Version is stamped by the build (-ldflags "-X ...display.Version=...").
var Version = "dev"

const banner = `     _           _                      _
  __| | __ _ ___| |__  _ __   __ _  ___| | __
 / _` + "`" + ` |/ _` + "`" + ` / __| '_ \| '_ \ / _` + "`" + ` |/ __| |/ /
| (_| | (_| \__ \ | | | |_) | (_| | (__|   <
 \__,_|\__,_|___/_| |_| .__/ \__,_|\___|_|\_\
                      |_|
`

// PrintBanner prints the ASCII art banner in bright magenta when colors are
// enabled, followed by the version line.
func PrintBanner(w io.Writer) {
	magenta := color.New(color.FgHiMagenta, color.Bold)
	magenta.Fprint(w, banner)
	fmt.Fprintf(w, "dashpack %s: batch DASH packaging\n\n", Version)
}
