// Package snapshot captures an immutable, content-addressed view of a source tree.
//
// [Take] walks a project root once, skipping version control metadata and
// any path matching the ignore patterns (doublestar globs relative to the
// root, such as "target/**"). Every regular file is recorded with its slash
// path, executable bit, size and sha256 digest. The snapshot digest is
// computed over the canonically sorted file records, so two identical trees
// hash the same regardless of the order the filesystem returns entries in.
//
// Stages never read the live tree. They [Snapshot.Materialize] the files they
// need into their own work directory, and every copied file is verified
// against its recorded digest; a file that changed after the snapshot was
// taken fails with [ErrChanged].
//
// The dependency-lock subset used for cache keys is obtained with
// [Snapshot.Subset]:
//
//	snap, err := snapshot.Take(root, []string{"target/**"})
//	if err != nil {
//	    return err
//	}
//	lock, err := snap.Subset([]string{"Cargo.toml", "Cargo.lock"})
package snapshot
