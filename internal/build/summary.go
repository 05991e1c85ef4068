package build

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
)

var (
	// "test result: ok. 12 passed; 0 failed; 1 ignored; ..."
	libtestSummary = regexp.MustCompile(`(?m)^test result: \w+\. (\d+) passed; (\d+) failed; (\d+) ignored`)

	// "--- PASS: TestName (0.00s)" and friends, including subtests.
	gotestLine = regexp.MustCompile(`(?m)^\s*--- (PASS|FAIL|SKIP): `)
)

// Counts diagnostics by severity.
//
// The pattern's first group is the severity. "error" counts as an error,
// "warning" as a warning; other severities are ignored.
func countDiagnostics(pattern *regexp.Regexp, log string) check.DiagnosticCounts {
	var counts check.DiagnosticCounts
	for _, m := range pattern.FindAllStringSubmatch(log, -1) {
		switch strings.ToLower(m[1]) {
		case "error":
			counts.Errors++
		case "warning":
			counts.Warnings++
		}
	}
	return counts
}

// Reports whether diagnostics reach the failure threshold.
func diagnosticsFail(counts check.DiagnosticCounts, warningsAsErrors bool) bool {
	if counts.Errors > 0 {
		return true
	}
	return warningsAsErrors && counts.Warnings > 0
}

// Parses per-test counts from test runner output.
//
// Returns nil when the format is none or nothing could be parsed.
func parseTestCounts(format, log string) *check.TestCounts {
	switch format {
	case manifest.FormatLibtest:
		return parseLibtest(log)
	case manifest.FormatGotest:
		return parseGotest(log)
	case manifest.FormatAuto:
		if c := parseLibtest(log); c != nil {
			return c
		}
		return parseGotest(log)
	default:
		return nil
	}
}

// Sums every libtest summary line; one is printed per test binary.
func parseLibtest(log string) *check.TestCounts {
	matches := libtestSummary.FindAllStringSubmatch(log, -1)
	if len(matches) == 0 {
		return nil
	}
	var c check.TestCounts
	for _, m := range matches {
		c.Passed += atoi(m[1])
		c.Failed += atoi(m[2])
		c.Ignored += atoi(m[3])
	}
	return &c
}

func parseGotest(log string) *check.TestCounts {
	matches := gotestLine.FindAllStringSubmatch(log, -1)
	if len(matches) == 0 {
		return nil
	}
	var c check.TestCounts
	for _, m := range matches {
		switch m[1] {
		case "PASS":
			c.Passed++
		case "FAIL":
			c.Failed++
		case "SKIP":
			c.Ignored++
		}
	}
	return &c
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
