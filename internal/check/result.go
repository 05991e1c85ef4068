package check

import (
	"time"

	"github.com/cruciblehq/cruxmatrix/internal/platform"
)

// Outcome of a stage.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// Pipeline stage names.
const (
	StageDeps    = "deps"
	StageLint    = "lint"
	StageTest    = "test"
	StagePackage = "package"
)

// Per-test counts reported by a test stage.
type TestCounts struct {
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Ignored int `json:"ignored" yaml:"ignored"`
}

// Diagnostic counts reported by a lint stage.
type DiagnosticCounts struct {
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
}

// Outcome of one stage for one platform. Immutable once added to a [Set].
type StageResult struct {
	Stage       string            `json:"stage" yaml:"stage"`
	Platform    string            `json:"platform" yaml:"platform"`
	Status      Status            `json:"status" yaml:"status"`
	Log         string            `json:"log,omitempty" yaml:"log,omitempty"`
	Artifact    string            `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Reason      string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Tests       *TestCounts       `json:"tests,omitempty" yaml:"tests,omitempty"`
	Diagnostics *DiagnosticCounts `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
}

// Returns the check name, "<platform-slug>/<stage>".
func (r *StageResult) Name() string {
	return Name(r.Platform, r.Stage)
}

// Returns the check name for a platform identifier and stage.
func Name(platformID, stage string) string {
	return platform.Slug(platformID) + "/" + stage
}

// Creates a skipped result explaining why the stage never ran.
func Skip(platformID, stage, reason string) *StageResult {
	return &StageResult{
		Stage:    stage,
		Platform: platformID,
		Status:   Skipped,
		Reason:   reason,
	}
}
