// Package format implements the on-disk SMPA container format: the file
// magic, the entry record codec, DOS timestamps, and the payload codec.
//
// An archive is the 8-byte magic followed by entry records in append order.
// Nothing is ever moved or removed; deleting an entry only sets a flag bit
// in its header (a tombstone). There is no index or footer; end of archive
// is end of file.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

// Magic is the 8-byte literal at offset 0 of every archive.
const Magic = "SMPA100A"

// EntryMagic is the little-endian uint32 leading every entry record.
const EntryMagic uint32 = 0x1743C8F1

// HeaderSize is the fixed byte size of an entry header, excluding the path.
const HeaderSize = 28

// MaxPathLen is the maximum entry path length in UTF-16 code units.
const MaxPathLen = 1023

// Byte offsets of patchable header fields, relative to the start of the
// entry record. The flags byte is rewritten in place when tombstoning; the
// packed-size field is rewritten after compression finishes.
const (
	FlagsOffset      = 4
	PackedSizeOffset = 10
)

// Flags is the per-entry flag bitset.
type Flags uint8

const (
	FlagDeleted    Flags = 0x01
	FlagCompressed Flags = 0x02
)

// Attrs is the normalized file attribute bitmask stored in each entry.
type Attrs uint8

const (
	AttrReadOnly  Attrs = 0x01
	AttrHidden    Attrs = 0x02
	AttrSystem    Attrs = 0x04
	AttrVolumeID  Attrs = 0x08
	AttrDirectory Attrs = 0x10
	AttrArchive   Attrs = 0x20
)

// IsDir reports whether the directory bit is set.
func (a Attrs) IsDir() bool {
	return a&AttrDirectory != 0
}

var (
	// ErrBadArchive is returned for structural violations of the format:
	// wrong entry magic, zero path length, payload streams that end early
	// or unpack to the wrong size.
	ErrBadArchive = errors.New("bad archive")

	// ErrBadData is returned when a compressed payload is well-framed but
	// its content is corrupt (failed checksum, invalid deflate data).
	ErrBadData = errors.New("corrupt compressed data")

	// ErrPathTooLong is returned when a path exceeds MaxPathLen code units.
	ErrPathTooLong = errors.New("entry path too long")
)

// Header is the decoded fixed-size portion of an entry record. The path
// follows the header on disk and is carried separately.
type Header struct {
	Flags Flags
	Attrs Attrs

	// ModTime is the packed DOS date/time of last modification.
	ModTime uint32

	// PackedSize is the payload size in the archive, in bytes.
	PackedSize uint64

	// OriginalSize is the unpacked payload size, in bytes.
	OriginalSize uint64
}

// ReadHeader decodes one entry header and its path from r.
//
// A clean end of archive (zero bytes available) returns io.EOF. A header
// that starts but does not complete returns io.ErrUnexpectedEOF. A wrong
// entry magic or zero path length returns ErrBadArchive; a path length above
// MaxPathLen returns ErrPathTooLong.
func ReadHeader(r io.Reader) (Header, string, error) {
	var buf [HeaderSize]byte

	switch _, err := io.ReadFull(r, buf[:]); {
	case err == io.EOF:
		return Header{}, "", io.EOF
	case err != nil:
		return Header{}, "", fmt.Errorf("read entry header error: %w", err)
	}

	if binary.LittleEndian.Uint32(buf[0:4]) != EntryMagic {
		return Header{}, "", fmt.Errorf("%w: bad entry magic", ErrBadArchive)
	}

	h := Header{
		Flags:        Flags(buf[4]),
		Attrs:        Attrs(buf[5]),
		ModTime:      binary.LittleEndian.Uint32(buf[6:10]),
		PackedSize:   binary.LittleEndian.Uint64(buf[10:18]),
		OriginalSize: binary.LittleEndian.Uint64(buf[18:26]),
	}

	pathLen := int(binary.LittleEndian.Uint16(buf[26:28]))
	if pathLen == 0 {
		return Header{}, "", fmt.Errorf("%w: zero path length", ErrBadArchive)
	}
	if pathLen > MaxPathLen {
		return Header{}, "", fmt.Errorf("%w: %d code units", ErrPathTooLong, pathLen)
	}

	raw := make([]byte, 2*pathLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Header{}, "", fmt.Errorf("read entry path error: %w", err)
	}

	units := make([]uint16, pathLen)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}

	return h, string(utf16.Decode(units)), nil
}

// WriteHeader encodes h followed by the path's UTF-16LE code units to w.
// No padding or alignment is added; the payload follows immediately.
func WriteHeader(w io.Writer, h Header, path string) error {
	units := utf16.Encode([]rune(path))
	switch n := len(units); {
	case n == 0:
		return fmt.Errorf("%w: empty path", ErrBadArchive)
	case n > MaxPathLen:
		return fmt.Errorf("%w: %d code units", ErrPathTooLong, n)
	}

	buf := make([]byte, HeaderSize+2*len(units))
	binary.LittleEndian.PutUint32(buf[0:4], EntryMagic)
	buf[4] = byte(h.Flags)
	buf[5] = byte(h.Attrs)
	binary.LittleEndian.PutUint32(buf[6:10], h.ModTime)
	binary.LittleEndian.PutUint64(buf[10:18], h.PackedSize)
	binary.LittleEndian.PutUint64(buf[18:26], h.OriginalSize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(units)))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[HeaderSize+2*i:], u)
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write entry header error: %w", err)
	}

	return nil
}

// WireSize returns the on-disk byte size of the header plus encoded path,
// excluding the payload.
func WireSize(path string) int {
	return HeaderSize + 2*len(utf16.Encode([]rune(path)))
}
