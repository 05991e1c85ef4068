package manifest

import "github.com/hashicorp/hcl/v2"

// Raw HCL structure of a manifest file.
type fileSchema struct {
	Project      projectSchema      `hcl:"project,block"`
	Platforms    []string           `hcl:"platforms,optional"`
	Env          map[string]string  `hcl:"env,optional"`
	Dependencies dependenciesSchema `hcl:"dependencies,block"`
	Libraries    []librarySchema    `hcl:"library,block"`
	Lint         *lintSchema        `hcl:"lint,block"`
	Test         *testSchema        `hcl:"test,block"`
	Package      *packageSchema     `hcl:"package,block"`
	Toolchains   []toolchainSchema  `hcl:"toolchain,block"`
	Develop      *developSchema     `hcl:"develop,block"`
}

type projectSchema struct {
	Name   string   `hcl:"name,label"`
	Ignore []string `hcl:"ignore,optional"`
}

type dependenciesSchema struct {
	Files          []string          `hcl:"files"`
	Outputs        []string          `hcl:"outputs"`
	Command        hcl.Expression    `hcl:"command"`
	Env            map[string]string `hcl:"env,optional"`
	FailurePattern *string           `hcl:"failure_pattern,optional"`
}

type librarySchema struct {
	Name    string  `hcl:"name,label"`
	Version string  `hcl:"version"`
	Prefix  *string `hcl:"prefix,optional"`
}

type lintSchema struct {
	Command           hcl.Expression    `hcl:"command"`
	Env               map[string]string `hcl:"env,optional"`
	WarningsAsErrors  *bool             `hcl:"warnings_as_errors,optional"`
	DiagnosticPattern *string           `hcl:"diagnostic_pattern,optional"`
}

type testSchema struct {
	Command hcl.Expression    `hcl:"command"`
	Env     map[string]string `hcl:"env,optional"`
	Format  *string           `hcl:"format,optional"`
}

type packageSchema struct {
	Command  hcl.Expression    `hcl:"command"`
	Env      map[string]string `hcl:"env,optional"`
	Artifact hcl.Expression    `hcl:"artifact"`
}

type toolchainSchema struct {
	Platform string            `hcl:"platform,label"`
	Target   string            `hcl:"target"`
	Env      map[string]string `hcl:"env,optional"`
	Image    *string           `hcl:"image,optional"`
}

type developSchema struct {
	Tools []string          `hcl:"tools,optional"`
	Env   map[string]string `hcl:"env,optional"`
}
