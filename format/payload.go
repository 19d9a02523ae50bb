package format

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// BufSize is the fixed buffer size for all payload streaming, bounding
// memory use regardless of entry size.
const BufSize = 64 * 1024

// MinCompressSize is the smallest original payload size eligible for
// compression. Smaller payloads are stored raw.
const MinCompressSize = 16

// ShouldCompress reports whether a payload of the given original size gets
// the deflate treatment. The format never compares compressed against raw
// size afterwards: an entry that inflates under deflate is stored inflated.
func ShouldCompress(originalSize uint64) bool {
	return originalSize >= MinCompressSize
}

// Decode inflates exactly packedSize bytes from src and writes the unpacked
// payload to dst, verifying it totals originalSize.
//
// tick, if non-nil, is called after each chunk with the number of source
// bytes consumed since the previous call; returning a non-nil error aborts
// the decode with that error. Decode does not reposition src past unread
// packed bytes; the caller owns the cursor.
func Decode(src io.Reader, dst io.Writer, packedSize, originalSize uint64, tick func(n int64) error) error {
	cr := &countingReader{r: io.LimitReader(src, int64(packedSize))}

	zr, err := zlib.NewReader(cr)
	if err != nil {
		return zlibError(err)
	}
	defer zr.Close()

	buf := make([]byte, BufSize)
	var written, reported uint64
	for {
		n, rerr := zr.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write unpacked payload error: %w", werr)
			}
			written += uint64(n)
		}

		if tick != nil && cr.n > reported {
			if terr := tick(int64(cr.n - reported)); terr != nil {
				return terr
			}
			reported = cr.n
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return zlibError(rerr)
		}
	}

	if written != originalSize {
		return fmt.Errorf("%w: payload unpacked to %d bytes, header says %d", ErrBadArchive, written, originalSize)
	}

	return nil
}

// Encode deflates src to dst in BufSize chunks, finishing the stream once
// src is exhausted. It returns the number of bytes read from src and
// written to dst; the caller compares read against the size recorded in the
// header and patches the packed-size field when written differs.
func Encode(src io.Reader, dst io.Writer) (read, written uint64, err error) {
	cw := &countingWriter{w: dst}
	zw := zlib.NewWriter(cw)

	buf := make([]byte, BufSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			read += uint64(n)
			if _, werr := zw.Write(buf[:n]); werr != nil {
				return read, cw.n, fmt.Errorf("write packed payload error: %w", werr)
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return read, cw.n, fmt.Errorf("read source error: %w", rerr)
		}
	}

	if err = zw.Close(); err != nil {
		return read, cw.n, fmt.Errorf("finish packed payload error: %w", err)
	}

	return read, cw.n, nil
}

// CopyExact copies exactly size bytes from src to dst in BufSize chunks.
// A short source returns io.ErrUnexpectedEOF. tick follows the Decode
// contract.
func CopyExact(dst io.Writer, src io.Reader, size uint64, tick func(n int64) error) error {
	buf := make([]byte, BufSize)

	for left := size; left > 0; {
		n := uint64(BufSize)
		if left < n {
			n = left
		}

		if _, err := io.ReadFull(src, buf[:n]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read payload error: %w", err)
		}
		if _, err := dst.Write(buf[:n]); err != nil {
			return fmt.Errorf("write payload error: %w", err)
		}
		left -= n

		if tick != nil {
			if err := tick(int64(n)); err != nil {
				return err
			}
		}
	}

	return nil
}

// CopyAll copies src to dst in BufSize chunks until EOF, returning the byte
// count. Used for raw (uncompressed) packing where the source is read to
// exhaustion and the total is validated against the stat size afterwards.
func CopyAll(dst io.Writer, src io.Reader) (n uint64, err error) {
	buf := make([]byte, BufSize)
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			if _, werr := dst.Write(buf[:nr]); werr != nil {
				return n, fmt.Errorf("write payload error: %w", werr)
			}
			n += uint64(nr)
		}

		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, fmt.Errorf("read source error: %w", rerr)
		}
	}
}

// zlibError maps decompressor errors onto the format's error kinds:
// framing problems are structural (ErrBadArchive), content corruption is
// ErrBadData, and plain I/O errors pass through wrapped.
func zlibError(err error) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, zlib.ErrHeader), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %v", ErrBadArchive, err)
	case errors.Is(err, zlib.ErrChecksum), errors.Is(err, zlib.ErrDictionary), errors.As(err, &corrupt):
		return fmt.Errorf("%w: %v", ErrBadData, err)
	default:
		return fmt.Errorf("unpack payload error: %w", err)
	}
}

type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}
