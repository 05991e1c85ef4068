package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cruciblehq/cruxmatrix/internal"
	"github.com/cruciblehq/cruxmatrix/internal/build"
	"github.com/cruciblehq/cruxmatrix/internal/check"
)

// Streams that pipeline commands report to.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Writes the toolchain log of each failed check, or of every check in
// verbose mode.
func printLogs(w io.Writer, s *check.Set) {
	for _, r := range s.Results() {
		if r.Log == "" || (r.Status != check.Failed && !internal.IsVerbose()) {
			continue
		}
		fmt.Fprintf(w, "==> %s (%s)\n%s", r.Name(), r.Status, r.Log)
		if !strings.HasSuffix(r.Log, "\n") {
			fmt.Fprintln(w)
		}
	}
}

// Writes a table of built packages.
func printPackages(w io.Writer, pkgs []*build.Package) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATFORM\tDIGEST\tSIZE\tPATH")
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Platform, p.Digest, p.Size, p.Path)
	}
	return tw.Flush()
}

// Writes the toolchain logs and the check table for s.
func printChecks(s *check.Set) error {
	printLogs(stderr, s)
	return check.Encode(stdout, s, check.FormatText)
}
