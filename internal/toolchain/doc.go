// Package toolchain invokes external compilers, linters and test runners.
//
// Every stage talks to its toolchain through one contract: an [Invocation]
// names the command, the work directory and the environment overlay, and
// the [Runner] returns a [Result] holding the exit code and the combined
// log. A nonzero exit code is a result, not an error; errors are reserved
// for failures to run the command at all and for cancellation.
//
// [ExecRunner] runs commands as host subprocesses, each in its own process
// group so that cancelling the context kills the whole tree.
// [ContainerRunner] runs commands inside a toolchain container for the
// target platform, with the work directory bind mounted at the same path.
package toolchain
