// Command dashpack converts a directory tree of videos into DASH packages.
//
// Every video under the input directory is transcoded to the target codec
// (or copied when it already conforms), segmented into a DASH manifest with
// fMP4 segments, optionally relocated, and listed in one catalog per
// destination base URL.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the root command and maps its error to an exit status.
// Errors already reported through the logger are not printed again.
func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "dashpack: %v\n", err)
		}
		return 1
	}
	return 0
}
