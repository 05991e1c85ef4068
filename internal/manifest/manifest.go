package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/cruciblehq/cruxmatrix/internal/library"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Test output formats.
const (
	FormatAuto    = "auto"
	FormatLibtest = "libtest"
	FormatGotest  = "gotest"
	FormatNone    = "none"
)

// Default pattern extracting the failing dependency from build output.
const defaultFailurePattern = "could not compile `([^`]+)`"

// Default pattern matching compiler diagnostics. The first group is the
// severity.
const defaultDiagnosticPattern = `(?m)^(error|warning)(?:\[[^\]]*\])?: `

// A decoded project manifest.
type Manifest struct {
	Name         string                        // Project name.
	Root         string                        // Project root directory.
	Ignore       []string                      // Snapshot ignore patterns.
	Platforms    []string                      // Declared target platforms, in order.
	Env          map[string]string             // Project-wide environment.
	Dependencies Dependencies                  // Dependency cache stage.
	Libraries    library.List                  // Declared external libraries.
	Lint         *Lint                         // Lint stage, nil when not declared.
	Test         *Test                         // Test stage, nil when not declared.
	Package      *Package                      // Package stage, nil when not declared.
	Toolchains   map[string]platform.Toolchain // Toolchain table overrides.
	Develop      Develop                       // Development environment.
}

// A command expression evaluated per build target.
type Command struct {
	expr hcl.Expression
}

// Evaluates the command for a scope.
func (c Command) Eval(s *Scope) ([]string, error) {
	args, err := s.evalList(c.expr)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s: empty command", ErrEval, c.expr.Range())
	}
	return args, nil
}

// The dependency cache stage.
type Dependencies struct {
	Files          []string          // Lock files defining the dependency state.
	Outputs        []string          // Build outputs stored in the cache artifact.
	Command        Command           // Compiles dependencies only.
	Env            map[string]string // Stage environment.
	FailurePattern *regexp.Regexp    // Extracts the failing dependency name.
}

// Returns the failing dependency named in log, or "" if none matches.
func (d Dependencies) FailingDependency(log string) string {
	if d.FailurePattern == nil {
		return ""
	}
	m := d.FailurePattern.FindStringSubmatch(log)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// The lint stage.
type Lint struct {
	Command           Command
	Env               map[string]string
	WarningsAsErrors  bool           // Fail on warnings, not only errors.
	DiagnosticPattern *regexp.Regexp // Matches diagnostics; group 1 is the severity.
}

// The test stage.
type Test struct {
	Command Command
	Env     map[string]string
	Format  string // One of the Format constants.
}

// The package stage.
type Package struct {
	Command  Command
	Env      map[string]string
	artifact hcl.Expression
}

// Evaluates the artifact path, relative to the stage work directory.
func (p *Package) Artifact(s *Scope) (string, error) {
	path, err := s.evalString(p.artifact)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(filepath.FromSlash(path)) {
		return "", fmt.Errorf("%w: %s: artifact %q escapes the work directory", ErrEval, p.artifact.Range(), path)
	}
	return path, nil
}

// The development environment.
type Develop struct {
	Tools []string
	Env   map[string]string
}

// Reads the manifest at path. The project root is the file's directory.
func Load(path string) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrManifest, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	m, err := Parse(src, path, root)
	if err != nil {
		return nil, err
	}

	slog.Debug("manifest loaded", "path", path, "project", m.Name, "platforms", m.Platforms)
	return m, nil
}

// Decodes manifest source. filename is used in diagnostics only.
func Parse(src []byte, filename, root string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrManifest, diags)
	}

	var raw fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrManifest, diags)
	}

	return build(&raw, root)
}

// Validates the raw structure and converts it to a Manifest.
func build(raw *fileSchema, root string) (*Manifest, error) {
	m := &Manifest{
		Name:       raw.Project.Name,
		Root:       root,
		Ignore:     raw.Project.Ignore,
		Platforms:  raw.Platforms,
		Env:        mapOrEmpty(raw.Env),
		Toolchains: make(map[string]platform.Toolchain),
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: project name is empty", ErrManifest)
	}

	deps, err := buildDependencies(raw.Dependencies)
	if err != nil {
		return nil, err
	}
	m.Dependencies = deps

	seen := make(map[string]bool)
	for _, lib := range raw.Libraries {
		if seen[lib.Name] {
			return nil, fmt.Errorf("%w: library %q declared twice", ErrManifest, lib.Name)
		}
		seen[lib.Name] = true
		m.Libraries = append(m.Libraries, library.Library{
			Name:    lib.Name,
			Version: lib.Version,
			Prefix:  deref(lib.Prefix, ""),
		})
	}

	if raw.Lint != nil {
		lint, err := buildLint(raw.Lint)
		if err != nil {
			return nil, err
		}
		m.Lint = lint
	}

	if raw.Test != nil {
		format := deref(raw.Test.Format, FormatAuto)
		if !slices.Contains([]string{FormatAuto, FormatLibtest, FormatGotest, FormatNone}, format) {
			return nil, fmt.Errorf("%w: unknown test format %q", ErrManifest, format)
		}
		m.Test = &Test{
			Command: Command{expr: raw.Test.Command},
			Env:     mapOrEmpty(raw.Test.Env),
			Format:  format,
		}
	}

	if raw.Package != nil {
		m.Package = &Package{
			Command:  Command{expr: raw.Package.Command},
			Env:      mapOrEmpty(raw.Package.Env),
			artifact: raw.Package.Artifact,
		}
	}

	for _, tc := range raw.Toolchains {
		p, err := platform.Parse(tc.Platform)
		if err != nil {
			return nil, fmt.Errorf("%w: toolchain %q: %w", ErrManifest, tc.Platform, err)
		}
		m.Toolchains[p.String()] = platform.Toolchain{
			Target: tc.Target,
			Env:    mapOrEmpty(tc.Env),
			Image:  deref(tc.Image, ""),
		}
	}

	if raw.Develop != nil {
		m.Develop = Develop{Tools: raw.Develop.Tools, Env: mapOrEmpty(raw.Develop.Env)}
	}

	return m, nil
}

func buildDependencies(raw dependenciesSchema) (Dependencies, error) {
	if len(raw.Files) == 0 {
		return Dependencies{}, fmt.Errorf("%w: dependencies.files is empty", ErrManifest)
	}
	if len(raw.Outputs) == 0 {
		return Dependencies{}, fmt.Errorf("%w: dependencies.outputs is empty", ErrManifest)
	}

	pattern, err := compile("dependencies.failure_pattern", deref(raw.FailurePattern, defaultFailurePattern))
	if err != nil {
		return Dependencies{}, err
	}

	return Dependencies{
		Files:          raw.Files,
		Outputs:        raw.Outputs,
		Command:        Command{expr: raw.Command},
		Env:            mapOrEmpty(raw.Env),
		FailurePattern: pattern,
	}, nil
}

func buildLint(raw *lintSchema) (*Lint, error) {
	pattern, err := compile("lint.diagnostic_pattern", deref(raw.DiagnosticPattern, defaultDiagnosticPattern))
	if err != nil {
		return nil, err
	}
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: lint.diagnostic_pattern needs a severity group", ErrManifest)
	}
	return &Lint{
		Command:           Command{expr: raw.Command},
		Env:               mapOrEmpty(raw.Env),
		WarningsAsErrors:  deref(raw.WarningsAsErrors, true),
		DiagnosticPattern: pattern,
	}, nil
}

// Builds the toolchain table: the built-in mapping plus manifest overrides.
func (m *Manifest) Table() *platform.Table {
	table := platform.DefaultTable()
	for _, id := range slices.Sorted(maps.Keys(m.Toolchains)) {
		// Keys were normalized when the manifest was built.
		_ = table.Set(id, m.Toolchains[id])
	}
	return table
}

func compile(field, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, field, err)
	}
	return re, nil
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func mapOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
