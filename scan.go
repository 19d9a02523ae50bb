package smpa

import (
	"fmt"
	"io"
	"os"

	"github.com/nguyengg/smpa/format"
)

// scanTombstoning walks every record from the current cursor (which must
// sit on the first entry, just past the file magic) to end of archive,
// setting the Deleted flag on each live entry the predicate matches. Only
// the single flags byte is rewritten in place; payload bytes never move, so
// the archive keeps its append-only growth and crash characteristics.
//
// Progress is reported in direct mode as the percentage of the entry's
// offset over the archive's size at open time. Used by both the packer
// (superseding existing paths) and the eraser.
func scanTombstoning(f *os.File, originalSize uint64, match func(h format.Header, path string) bool, mon *monitor) error {
	for {
		var (
			h          format.Header
			path       string
			entryBegin int64
			err        error
		)

		// Advance to the next live entry, skipping tombstone payloads.
		for {
			if entryBegin, err = f.Seek(0, io.SeekCurrent); err != nil {
				return fmt.Errorf("tell entry offset error: %w", err)
			}

			h, path, err = format.ReadHeader(f)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			if h.Flags&format.FlagDeleted == 0 {
				break
			}
			if h.PackedSize != 0 {
				if _, err = f.Seek(int64(h.PackedSize), io.SeekCurrent); err != nil {
					return fmt.Errorf("seek past tombstoned payload error: %w", err)
				}
			}
		}

		if match(h, path) {
			contentBegin, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return fmt.Errorf("tell payload offset error: %w", err)
			}

			if _, err = f.Seek(entryBegin+format.FlagsOffset, io.SeekStart); err != nil {
				return fmt.Errorf("seek to flags byte error: %w", err)
			}
			if _, err = f.Write([]byte{byte(h.Flags | format.FlagDeleted)}); err != nil {
				return fmt.Errorf("write tombstone flag error: %w", err)
			}
			if _, err = f.Seek(contentBegin, io.SeekStart); err != nil {
				return fmt.Errorf("seek back to payload error: %w", err)
			}
		}

		if h.PackedSize > 0 {
			if _, err = f.Seek(int64(h.PackedSize), io.SeekCurrent); err != nil {
				return fmt.Errorf("seek past payload error: %w", err)
			}
		}

		if err = mon.percent("", uint64(entryBegin), originalSize); err != nil {
			return err
		}
	}
}
