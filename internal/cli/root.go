package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/cruxmatrix/internal"
	"github.com/cruciblehq/cruxmatrix/internal/paths"
)

// Default containerd socket and namespace for the container runner.
const (
	DefaultContainerdAddress   = "/run/containerd/containerd.sock"
	DefaultContainerdNamespace = "cruxmatrix"
)

// Represents the root command for cruxmatrix.
var RootCmd struct {
	Quiet               bool   `short:"q" help:"Suppress informational output."`
	Verbose             bool   `short:"v" help:"Print the toolchain log of every stage."`
	Debug               bool   `short:"d" help:"Enable debug output."`
	Dir                 string `short:"C" help:"Project root." default:"." type:"path" placeholder:"DIR"`
	File                string `short:"f" help:"Manifest path. Defaults to cruxmatrix.hcl in the project root." type:"path" placeholder:"PATH"`
	CacheDir            string `help:"Local dependency cache store." env:"CRUXMATRIX_CACHE_DIR" type:"path" placeholder:"DIR"`
	WorkDir             string `help:"Root for per-run work directories." env:"CRUXMATRIX_WORK_DIR" type:"path" placeholder:"DIR"`
	Runner              string `help:"Toolchain runner (${enum})." enum:"exec,container" default:"exec" env:"CRUXMATRIX_RUNNER"`
	ContainerdAddress   string `help:"Containerd socket for the container runner." default:"${containerd_address}" env:"CRUXMATRIX_CONTAINERD_ADDRESS" placeholder:"PATH"`
	ContainerdNamespace string `help:"Containerd namespace for the container runner." default:"${containerd_namespace}" env:"CRUXMATRIX_CONTAINERD_NAMESPACE" placeholder:"NAME"`
	KeepWork            bool   `help:"Keep work directories after the run." env:"CRUXMATRIX_KEEP_WORK"`
	Jobs                int    `short:"j" help:"Maximum concurrent platform pipelines, 0 for unlimited." default:"0" env:"CRUXMATRIX_JOBS"`

	Build   BuildCmd   `cmd:"" help:"Build the dependency cache and package for each platform."`
	Check   CheckCmd   `cmd:"" help:"Run the full pipeline: dependencies, lint, test and package."`
	Package PackageCmd `cmd:"" help:"Build installable packages with OCI image layouts."`
	Develop DevelopCmd `cmd:"" help:"Print or enter the development environment."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
//
// Usage errors are returned as an [ExitError] with [ExitUsage].
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Environment files feed the env-backed flags, so they load first.
	loadEnvFiles(".", paths.EnvFile())

	parser, err := newParser(ctx, &RootCmd)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.Errorf("%s", err)
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) {
			_ = parseErr.Context.PrintUsage(true)
		}
		return &ExitError{Code: ExitUsage}
	}

	configureLogger()

	return classify(kongCtx.Run())
}

// Creates the command-line parser for cli, a value of the root command type.
func newParser(ctx context.Context, cli any) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name(internal.Name),
		kong.Description("Builds, checks and packages a project for a matrix of target platforms.\n\nDependencies are compiled once per platform and cached by lock-file content."),
		kong.UsageOnError(),
		kong.Vars{
			"version":              internal.VersionString(),
			"containerd_address":   DefaultContainerdAddress,
			"containerd_namespace": DefaultContainerdNamespace,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	internal.SetDebug(RootCmd.Debug || internal.IsDebug())
	internal.SetQuiet(RootCmd.Quiet || internal.IsQuiet())
	internal.SetVerbose(RootCmd.Verbose || internal.IsVerbose())

	slog.SetDefault(NewLogger(os.Stderr))
}

// Creates the process logger writing to w.
//
// The level follows the debug and quiet switches. CRUXMATRIX_LOG_FORMAT=json
// selects JSON output.
func NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel()}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv(internal.EnvPrefix+"LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler.WithGroup(internal.Name))
}

// Returns the log level derived from the runtime switches.
func logLevel() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
