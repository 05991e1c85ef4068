package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Machine-readable form of a set.
type Report struct {
	Passed bool           `json:"passed" yaml:"passed"`
	Failed []string       `json:"failed" yaml:"failed"`
	Checks []*StageResult `json:"checks" yaml:"checks"`
}

// Builds the report for a set.
func NewReport(s *Set) *Report {
	failed := s.Failed()
	if failed == nil {
		failed = []string{}
	}
	return &Report{
		Passed: s.Passed(),
		Failed: failed,
		Checks: s.Results(),
	}
}

// Writes the set to w in the given format.
//
// The text format is a table of check names, statuses and summaries. JSON
// and YAML include full logs.
func Encode(w io.Writer, s *Set, format string) error {
	switch format {
	case FormatText, "":
		return encodeText(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewReport(s))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewReport(s)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func encodeText(w io.Writer, s *Set) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tDURATION\tDETAIL")
	for _, r := range s.Results() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name(), r.Status, r.Duration.Round(time.Millisecond), summary(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	verdict := "passed"
	if !s.Passed() {
		verdict = "failed"
	}
	counts := s.Counts()
	_, err := fmt.Fprintf(w, "\n%s: %d passed, %d failed, %d skipped\n", verdict, counts[Passed], counts[Failed], counts[Skipped])
	return err
}

// Returns a one-line description of a result.
func summary(r *StageResult) string {
	var parts []string
	if r.Tests != nil {
		parts = append(parts, fmt.Sprintf("%d passed, %d failed, %d ignored", r.Tests.Passed, r.Tests.Failed, r.Tests.Ignored))
	}
	if r.Diagnostics != nil {
		parts = append(parts, fmt.Sprintf("%d errors, %d warnings", r.Diagnostics.Errors, r.Diagnostics.Warnings))
	}
	if r.Artifact != "" {
		parts = append(parts, r.Artifact)
	}
	if r.Reason != "" {
		parts = append(parts, r.Reason)
	}
	return strings.Join(parts, "; ")
}
