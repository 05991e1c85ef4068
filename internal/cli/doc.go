// Parses flags, configures logging and runs cruxmatrix commands.
//
// Global flags:
//
//	-q, --quiet                 Suppress informational output.
//	-v, --verbose               Print the toolchain log of every stage.
//	-d, --debug                 Enable debug output.
//	-C, --dir                   Project root (default ".").
//	-f, --file                  Manifest path (default "<dir>/cruxmatrix.hcl").
//	    --cache-dir             Local dependency cache store.
//	    --work-dir              Root for per-run work directories.
//	    --runner                Toolchain runner, "exec" or "container".
//	    --containerd-address    Containerd socket for the container runner.
//	    --keep-work             Keep work directories after the run.
//	-j, --jobs                  Maximum concurrent platform pipelines.
//
// Most flags can also be set through CRUXMATRIX_* environment variables,
// which may come from a .env file in the working directory or the user
// environment file. Flags win over the environment, and variables already
// set in the process win over .env files.
//
// Commands return an [ExitError] to select the process exit status: 1 when
// checks failed, 2 for usage and configuration errors.
package cli
