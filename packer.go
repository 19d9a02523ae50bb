package smpa

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/nguyengg/smpa/format"
)

// PackOptions customises Pack.
type PackOptions struct {
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

	// Flatten discards directory structure: directory candidates are
	// dropped and every file lands at a single archive level (under
	// subPath). Colliding file names are resolved by keeping, per name,
	// the candidate appearing last in the input order.
	Flatten bool

	// RemoveSource deletes the packed source files and directories after
	// all entries have been written, in reverse insertion order so
	// children go before their parents. In Flatten mode only files are
	// deleted, since directories were never packed.
	RemoveSource bool
}

// Pack appends the named sources to the archive, creating it if needed.
//
// relPaths are source paths relative to srcRoot; a trailing separator marks
// a directory candidate. Each candidate is stored under subPath (which may
// be empty) at its relative path, or at its bare file name in Flatten mode.
// When the archive already exists, every live entry whose path
// case-insensitively equals an incoming path is tombstoned first, so the
// appended version supersedes it.
//
// Any failure after some entries have been appended or tombstoned leaves
// those changes in place; there is no rollback.
func Pack(ctx context.Context, archive, subPath, srcRoot string, relPaths []string, optFns ...func(*PackOptions)) error {
	opts := &PackOptions{ProgressInterval: DefaultProgressInterval}
	for _, fn := range optFns {
		fn(opts)
	}

	mon := newMonitor(ctx, opts.Progress, opts.ProgressInterval)

	// immediate zero-size report so the host can cancel before any I/O.
	if err := mon.report(archive, 0); err != nil {
		return err
	}

	// An empty candidate list still creates a new, empty archive.
	cands := buildCandidates(subPath, relPaths, opts.Flatten)

	f, created, originalSize, err := openForPack(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	if !created {
		if err = checkArchiveMagic(f, mon); err != nil {
			return err
		}

		// Supersede: tombstone live entries being re-packed.
		paths := make([]string, len(cands))
		for i, c := range cands {
			paths[i] = c.archivePath
		}
		set := newPathSet(paths)
		if err = scanTombstoning(f, originalSize, func(_ format.Header, path string) bool {
			return set.contains(path)
		}, mon); err != nil {
			return err
		}
	}

	// The tombstoning scan (or the fresh magic write) left the cursor at
	// end of file; every new entry appends from here.
	for i := range cands {
		abs := filepath.Join(srcRoot, toNativePath(cands[i].rel))

		if err = mon.percent(abs, uint64(i), uint64(len(cands))); err != nil {
			return err
		}

		if cands[i].isDir, err = packOne(f, cands[i].archivePath, abs); err != nil {
			return err
		}
	}

	if opts.RemoveSource {
		// Reverse insertion order so files and subdirectories go before
		// their parent directories.
		for i := len(cands) - 1; i >= 0; i-- {
			abs := filepath.Join(srcRoot, toNativePath(cands[i].rel))
			if err = os.Remove(abs); err != nil {
				return fmt.Errorf("remove source error: %w", err)
			}
		}
	}

	return nil
}

type candidate struct {
	rel         string
	archivePath string
	isDir       bool
}

// buildCandidates turns the host's flat relative-path list into the
// packer's insertion order: flatten-mode drops directories and resolves
// name collisions (last one wins), then everything is sorted
// case-insensitively by eventual in-archive path so ancestor and duplicate
// checks can use ordered search.
func buildCandidates(subPath string, relPaths []string, flatten bool) []candidate {
	rels := make([]string, 0, len(relPaths))
	for _, p := range relPaths {
		// Directories carry a trailing separator in the input list.
		if flatten && hasTrailingSep(p) {
			continue
		}
		if p = stripTrailingSep(p); p != "" {
			rels = append(rels, p)
		}
	}

	if flatten {
		rels = dedupeByName(rels)
	}

	sub := toArchivePath(subPath)
	cands := make([]candidate, len(rels))
	for i, rel := range rels {
		ap := toArchivePath(rel)
		if flatten {
			ap = baseName(ap)
		}
		cands[i] = candidate{rel: rel, archivePath: combinePath(sub, ap)}
	}

	sort.Slice(cands, func(i, j int) bool {
		return caseInsensitiveLess(cands[i].archivePath, cands[j].archivePath)
	})

	return cands
}

// openForPack opens an existing archive for update, or creates a new one
// and writes the file magic. The reported size is the file's size at open
// time, used only for tombstoning progress percentages.
func openForPack(name string) (f *os.File, created bool, size uint64, err error) {
	if f, err = os.OpenFile(name, os.O_RDWR, 0); err == nil {
		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, false, 0, fmt.Errorf("stat archive error: %w", err)
		}
		return f, false, uint64(fi.Size()), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, 0, fmt.Errorf("open archive error: %w", err)
	}

	if f, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666); err != nil {
		return nil, false, 0, fmt.Errorf("create archive error: %w", err)
	}
	if _, err = f.WriteString(format.Magic); err != nil {
		_ = f.Close()
		return nil, false, 0, fmt.Errorf("write archive magic error: %w", err)
	}

	return f, true, 0, nil
}

// packOne appends one entry at the archive's current cursor: header and
// path first, then the streamed payload. The packed size is written as a
// placeholder equal to the original size; if compression changes the byte
// count, the on-disk field is patched in place afterwards.
func packOne(f *os.File, archivePath, src string) (isDir bool, err error) {
	path := stripTrailingSep(archivePath)

	h, err := headerFor(src)
	if err != nil {
		return false, err
	}
	h.PackedSize = h.OriginalSize
	isDir = h.Attrs.IsDir()

	// Directories have zero original size and never qualify. Note that an
	// eligible payload is stored compressed even if deflate inflates it.
	compress := format.ShouldCompress(h.OriginalSize)
	if compress {
		h.Flags |= format.FlagCompressed
	}

	entryBegin, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return isDir, fmt.Errorf("tell entry offset error: %w", err)
	}

	if err = format.WriteHeader(f, h, path); err != nil {
		return isDir, err
	}

	if isDir {
		return true, nil
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("open source error: %w", err)
	}
	defer srcFile.Close()

	if !compress {
		n, err := format.CopyAll(f, srcFile)
		if err != nil {
			return false, err
		}
		if n != h.OriginalSize {
			return false, fmt.Errorf("source %q changed while packing: copied %d bytes, expected %d", src, n, h.OriginalSize)
		}
		return false, nil
	}

	read, written, err := format.Encode(srcFile, f)
	if err != nil {
		return false, err
	}
	if read != h.OriginalSize {
		return false, fmt.Errorf("source %q changed while packing: read %d bytes, expected %d", src, read, h.OriginalSize)
	}

	if written != read {
		if err = patchPackedSize(f, entryBegin, written); err != nil {
			return false, err
		}
	}

	return false, nil
}

// patchPackedSize rewrites the packed-size field of the entry starting at
// entryBegin, then restores the cursor to end of the just-written payload.
func patchPackedSize(f *os.File, entryBegin int64, packedSize uint64) error {
	end, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("tell entry end offset error: %w", err)
	}

	if _, err = f.Seek(entryBegin+format.PackedSizeOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to packed-size field error: %w", err)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], packedSize)
	if _, err = f.Write(buf[:]); err != nil {
		return fmt.Errorf("patch packed size error: %w", err)
	}

	if _, err = f.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("seek back to entry end error: %w", err)
	}

	return nil
}
