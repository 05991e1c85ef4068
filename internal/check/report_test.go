package check

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func sampleSet(t *testing.T) *Set {
	t.Helper()
	s, err := Aggregate(
		&StageResult{Stage: StageDeps, Platform: "linux/amd64", Status: Passed},
		&StageResult{Stage: StageLint, Platform: "linux/amd64", Status: Failed, Log: "warning: unused variable",
			Diagnostics: &DiagnosticCounts{Warnings: 1}},
		&StageResult{Stage: StageTest, Platform: "linux/amd64", Status: Passed,
			Tests: &TestCounts{Passed: 12, Ignored: 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEncodeText(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleSet(t), FormatText); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"linux-amd64/deps",
		"linux-amd64/lint",
		"0 errors, 1 warnings",
		"12 passed, 0 failed, 1 ignored",
		"failed: 2 passed, 1 failed, 0 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleSet(t), FormatJSON); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.Passed {
		t.Fatal("Passed = true, want false")
	}
	if len(report.Checks) != 3 {
		t.Fatalf("len(Checks) = %d, want 3", len(report.Checks))
	}
	if len(report.Failed) != 1 || report.Failed[0] != "linux-amd64/lint" {
		t.Fatalf("Failed = %v", report.Failed)
	}
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleSet(t), FormatYAML); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var report struct {
		Passed bool     `yaml:"passed"`
		Failed []string `yaml:"failed"`
		Checks []struct {
			Stage  string `yaml:"stage"`
			Status string `yaml:"status"`
		} `yaml:"checks"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if report.Passed || len(report.Checks) != 3 {
		t.Fatalf("report = %+v", report)
	}
	if report.Checks[1].Stage != StageLint || report.Checks[1].Status != string(Failed) {
		t.Fatalf("checks[1] = %+v", report.Checks[1])
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, NewSet(), "xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("error = %v, want ErrUnknownFormat", err)
	}
}
