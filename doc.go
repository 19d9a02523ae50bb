// Package smpa reads and writes SMPA archives: an append-only container
// format storing files and directories with optional per-entry deflate
// compression.
//
// An archive grows monotonically. Packing appends new entries and
// tombstones any live entry it supersedes; erasing only flips a flag byte
// in place. Dead records keep their payload bytes in the file, so archives
// never shrink and never need compaction. Every operation scans entries
// sequentially from the front; there is no index.
//
// The operation surface mirrors what an archiver host drives:
//
//	Probe(name)                    recognize the format by content
//	OpenReader(name, mode)         list or extract via Next/Skip/Test/Extract
//	Pack(ctx, archive, ...)        append files, superseding same paths
//	Erase(ctx, archive, paths)     tombstone paths and their descendants
//
// Long operations report through a rate-limited progress callback
// (ProgressFunc) that can also request cancellation; see SetDefaultProgress
// for the process-wide fallback. Same-archive operations must be
// serialized by the caller; operations on distinct archives are
// independent and may run concurrently.
package smpa
