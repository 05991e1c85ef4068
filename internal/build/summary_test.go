package build

import (
	"regexp"
	"testing"

	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/google/go-cmp/cmp"
)

func TestCountDiagnostics(t *testing.T) {
	pattern := regexp.MustCompile(`(?m)^(error|warning)(?:\[[^\]]*\])?: `)
	log := `warning: unused import
  --> src/lib.rs:1:5
error[E0308]: mismatched types
warning: 2 warnings emitted
note: this is not counted
`
	got := countDiagnostics(pattern, log)
	want := check.DiagnosticCounts{Errors: 1, Warnings: 2}
	if got != want {
		t.Fatalf("countDiagnostics = %+v, want %+v", got, want)
	}
}

func TestDiagnosticsFail(t *testing.T) {
	tests := []struct {
		counts           check.DiagnosticCounts
		warningsAsErrors bool
		want             bool
	}{
		{check.DiagnosticCounts{}, true, false},
		{check.DiagnosticCounts{Warnings: 1}, true, true},
		{check.DiagnosticCounts{Warnings: 1}, false, false},
		{check.DiagnosticCounts{Errors: 1}, false, true},
	}
	for _, tt := range tests {
		if got := diagnosticsFail(tt.counts, tt.warningsAsErrors); got != tt.want {
			t.Errorf("diagnosticsFail(%+v, %v) = %v, want %v", tt.counts, tt.warningsAsErrors, got, tt.want)
		}
	}
}

func TestParseTestCounts(t *testing.T) {
	libtest := `running 3 tests
test a ... ok
test result: ok. 3 passed; 0 failed; 1 ignored; 0 measured; 0 filtered out
running 2 tests
test result: FAILED. 1 passed; 1 failed; 0 ignored; 0 measured; 0 filtered out
`
	gotest := `=== RUN   TestA
--- PASS: TestA (0.00s)
=== RUN   TestB
    --- SKIP: TestB/sub (0.00s)
--- FAIL: TestB (0.01s)
FAIL
`

	tests := []struct {
		name   string
		format string
		log    string
		want   *check.TestCounts
	}{
		{"libtest", manifest.FormatLibtest, libtest, &check.TestCounts{Passed: 4, Failed: 1, Ignored: 1}},
		{"gotest", manifest.FormatGotest, gotest, &check.TestCounts{Passed: 1, Failed: 1, Ignored: 1}},
		{"auto libtest", manifest.FormatAuto, libtest, &check.TestCounts{Passed: 4, Failed: 1, Ignored: 1}},
		{"auto gotest", manifest.FormatAuto, gotest, &check.TestCounts{Passed: 1, Failed: 1, Ignored: 1}},
		{"none", manifest.FormatNone, libtest, nil},
		{"unparsed", manifest.FormatAuto, "all good\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTestCounts(tt.format, tt.log)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("parseTestCounts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
