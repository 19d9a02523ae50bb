package smpa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nguyengg/smpa/format"
)

// OpenMode selects what a Reader session will be used for.
type OpenMode int

const (
	// ModeList opens the archive to enumerate entries.
	ModeList OpenMode = iota
	// ModeExtract opens the archive to extract entry payloads.
	ModeExtract
)

// ReaderOptions customises OpenReader.
type ReaderOptions struct {
	// Progress receives progress updates and may cancel the session.
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

// Entry is one live archive record as surfaced by Reader.Next.
type Entry struct {
	// Path is the in-archive path, backslash-separated.
	Path string

	Attrs format.Attrs

	// Compressed reports whether the payload is a deflate stream rather
	// than raw bytes.
	Compressed bool

	// PackedSize is the payload size in the archive; OriginalSize the
	// unpacked size. Equal for uncompressed entries, both zero for
	// directories.
	PackedSize   uint64
	OriginalSize uint64

	// RawModTime is the packed DOS modification timestamp.
	RawModTime uint32
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.Attrs.IsDir() }

// ModTime returns the entry's modification time at the format's 2-second
// resolution.
func (e *Entry) ModTime() time.Time { return format.DOSTimeToTime(e.RawModTime) }

// Reader is a sequential session over an existing archive. A session scans
// strictly forward from the first record after the magic; there is no
// index. Call Next to advance to the following live entry, then exactly one
// of Skip, Test or Extract to consume its payload.
//
// A Reader owns one file handle and is not safe for concurrent use;
// distinct sessions over distinct files may run in parallel.
type Reader struct {
	f    *os.File
	mode OpenMode
	mon  *monitor

	cur     format.Header
	curPath string
	hasCur  bool
}

// OpenReader opens the named archive for listing or extraction. It fails
// with ErrUnsupportedMode for any other mode, ErrBadArchive if the file
// does not start with the format magic.
func OpenReader(name string, mode OpenMode, optFns ...func(*ReaderOptions)) (*Reader, error) {
	switch mode {
	case ModeList, ModeExtract:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMode, mode)
	}

	opts := &ReaderOptions{ProgressInterval: DefaultProgressInterval}
	for _, fn := range optFns {
		fn(opts)
	}

	mon := newMonitor(nil, opts.Progress, opts.ProgressInterval)

	// zero-size tick up front so the host can cancel before any I/O.
	if err := mon.tick(); err != nil {
		return nil, err
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open archive error: %w", err)
	}

	r := &Reader{f: f, mode: mode, mon: mon}
	if err = mon.tick(); err == nil {
		if err = checkArchiveMagic(f, mon); err == nil {
			err = mon.tick()
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return r, nil
}

// Mode returns the mode the session was opened with.
func (r *Reader) Mode() OpenMode { return r.mode }

// Close releases the session's file handle.
func (r *Reader) Close() error { return r.f.Close() }

// Next advances to the next live entry, seeking past the payloads of any
// tombstoned records on the way, and returns io.EOF at end of archive.
//
// The returned entry has been validated: a directory must have zero sizes
// and an uncompressed entry equal packed/original sizes, else
// ErrBadArchive.
func (r *Reader) Next() (*Entry, error) {
	r.hasCur = false

	for {
		h, path, err := format.ReadHeader(r.f)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		r.mon.add(uint64(format.WireSize(path)))
		if err = r.mon.tick(); err != nil {
			return nil, err
		}

		if h.Flags&format.FlagDeleted != 0 {
			// Tombstone: its payload bytes are still physically present.
			if h.PackedSize != 0 {
				if _, err = r.f.Seek(int64(h.PackedSize), io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("seek past tombstoned payload error: %w", err)
				}
				r.mon.add(h.PackedSize)
				if err = r.mon.tick(); err != nil {
					return nil, err
				}
			}
			continue
		}

		r.cur, r.curPath, r.hasCur = h, path, true
		break
	}

	if r.cur.Attrs.IsDir() && (r.cur.PackedSize > 0 || r.cur.OriginalSize > 0) {
		return nil, fmt.Errorf("%w: directory entry %q has nonzero size", ErrBadArchive, r.curPath)
	}
	if r.cur.Flags&format.FlagCompressed == 0 && r.cur.PackedSize != r.cur.OriginalSize {
		return nil, fmt.Errorf("%w: uncompressed entry %q has packed size %d != original size %d",
			ErrBadArchive, r.curPath, r.cur.PackedSize, r.cur.OriginalSize)
	}

	return &Entry{
		Path:         r.curPath,
		Attrs:        r.cur.Attrs,
		Compressed:   r.cur.Flags&format.FlagCompressed != 0,
		PackedSize:   r.cur.PackedSize,
		OriginalSize: r.cur.OriginalSize,
		RawModTime:   r.cur.ModTime,
	}, nil
}

// Skip seeks past the current entry's payload without decoding it.
func (r *Reader) Skip() error { return r.skipPayload() }

// Test seeks past the current entry's payload. Payload integrity is not
// verified beyond what the sequential scan already enforces.
func (r *Reader) Test() error { return r.skipPayload() }

func (r *Reader) skipPayload() error {
	if !r.hasCur {
		return errors.New("no current entry; call Next first")
	}
	r.hasCur = false

	if r.cur.PackedSize != 0 {
		if _, err := r.f.Seek(int64(r.cur.PackedSize), io.SeekCurrent); err != nil {
			return fmt.Errorf("seek past payload error: %w", err)
		}
		r.mon.add(r.cur.PackedSize)
		if err := r.mon.tick(); err != nil {
			return err
		}
	}

	return nil
}

// Extract writes the current entry to destPath/destName. Directory entries
// create the destination directory; file entries decode or copy the payload
// into a newly created file, creating missing parent directories. On
// success the entry's attributes and modification time are applied best
// effort.
//
// If the progress callback cancels mid-extraction, the partially written
// destination file (or the created directory) is removed before
// ErrCancelled is returned. Other failures leave partial output in place.
func (r *Reader) Extract(destPath, destName string) error {
	if !r.hasCur {
		return errors.New("no current entry; call Next first")
	}
	r.hasCur = false

	dest := filepath.Join(toNativePath(destPath), stripTrailingSep(toNativePath(destName)))
	if dest == "" || dest == "." {
		return fmt.Errorf("empty extraction destination for entry %q", r.curPath)
	}

	if r.cur.Attrs.IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("create directory error: %w", err)
		}
		if err := r.mon.tick(); err != nil {
			_ = os.Remove(dest)
			return err
		}
	} else if err := r.extractFile(dest); err != nil {
		return err
	}

	applyAttributesAndTime(dest, r.cur.Attrs, r.cur.ModTime)

	return r.mon.tick()
}

func (r *Reader) extractFile(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory error: %w", err)
	}

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination file error: %w", err)
	}

	if err = r.mon.tick(); err == nil {
		err = r.unpackPayload(dst)
	}

	_ = dst.Close()
	if err != nil {
		if isCancel(err) {
			_ = os.Remove(dest)
		}
		return err
	}

	return nil
}

func (r *Reader) unpackPayload(dst io.Writer) error {
	contentBegin, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("tell payload offset error: %w", err)
	}

	tick := func(n int64) error {
		r.mon.add(uint64(n))
		return r.mon.tick()
	}

	if r.cur.Flags&format.FlagCompressed != 0 {
		err = format.Decode(r.f, dst, r.cur.PackedSize, r.cur.OriginalSize, tick)
	} else {
		err = format.CopyExact(dst, r.f, r.cur.PackedSize, tick)
	}
	if err != nil {
		return err
	}

	// The decoder may buffer ahead of the deflate stream's end; reposition
	// exactly past the payload so the next record lines up.
	if _, err = r.f.Seek(contentBegin+int64(r.cur.PackedSize), io.SeekStart); err != nil {
		return fmt.Errorf("seek past payload error: %w", err)
	}

	return nil
}

// checkArchiveMagic consumes and validates the 8-byte file magic.
func checkArchiveMagic(r io.Reader, mon *monitor) error {
	var buf [len(format.Magic)]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("read archive magic error: %w", err)
	}
	if string(buf[:]) != format.Magic {
		return fmt.Errorf("%w: bad file magic", ErrBadArchive)
	}
	if mon != nil {
		mon.add(uint64(len(format.Magic)))
	}
	return nil
}

// isCancel reports whether err represents a cancellation request, either
// from a progress callback or a context.
func isCancel(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
