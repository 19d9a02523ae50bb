package smpa

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nguyengg/smpa/format"
)

// EraseOptions customises Erase.
type EraseOptions struct {
	// Progress receives progress updates and may cancel the operation.
	//
	// Defaults to the process-wide callback installed with
	// SetDefaultProgress, if any.
	Progress ProgressFunc

	// ProgressInterval throttles Progress invocations.
	//
	// Defaults to DefaultProgressInterval; zero or negative reports on
	// every update.
	ProgressInterval time.Duration
}

// Erase tombstones every live entry matching the given in-archive paths. A
// path ending in the directory wildcard "*.*" (or a plain trailing
// separator) denotes that directory and everything nested under it;
// matching is case-insensitive and climbs parent directories, so deleting
// "Dir" also deletes "Dir\Sub\File.txt".
//
// Entries are never physically removed: only their Deleted flag byte is
// rewritten in place, and the archive does not shrink. An empty deletion
// list (after normalization) is a no-op.
func Erase(ctx context.Context, archive string, paths []string, optFns ...func(*EraseOptions)) error {
	opts := &EraseOptions{ProgressInterval: DefaultProgressInterval}
	for _, fn := range optFns {
		fn(opts)
	}

	mon := newMonitor(ctx, opts.Progress, opts.ProgressInterval)

	// immediate zero-size report so the host can cancel before any I/O.
	if err := mon.report(archive, 0); err != nil {
		return err
	}

	set := newDeleteSet(paths)
	if len(set) == 0 {
		return nil
	}

	f, err := os.OpenFile(archive, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open archive error: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive error: %w", err)
	}

	if err = checkArchiveMagic(f, mon); err != nil {
		return err
	}

	return scanTombstoning(f, uint64(fi.Size()), func(_ format.Header, path string) bool {
		return set.matchesAncestor(path)
	}, mon)
}
