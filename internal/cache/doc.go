// Package cache stores compiled dependency artifacts by content-derived key.
//
// A [Key] is the fingerprint of a dependency lock state, a target platform
// and the declared external library set; identical inputs always produce an
// identical key. An [Artifact] pairs a key with an opaque blob, normally a
// deterministic tar.zst archive of the dependency build outputs produced by
// [Pack] and restored with [Unpack].
//
// Stores implement [Store]: exists, read and atomic write. A write either
// becomes fully visible or not at all, and the first write for a key wins;
// later writes for the same key are no-ops. Three implementations exist:
//
//   - [FileStore] keeps entries on local disk, writing each entry into a
//     temporary directory and renaming it into place once complete.
//   - [S3Store] keeps entries in an S3-compatible bucket.
//   - [MemoryStore] keeps entries in memory, for tests.
//
// [LRU] adds an in-process read cache in front of any store.
//
// Stores never evict. Retention is left to whoever manages the storage.
package cache
