package smpa

import (
	"fmt"
	"os"
	"strings"

	"github.com/nguyengg/smpa/format"
)

// normalizeAttributes maps host file metadata onto the archive's attribute
// bitmask. The mapping is necessarily lossy on non-Windows hosts: hidden
// means a dot-prefixed name, read-only means no owner write bit, and the
// archive bit is set on every regular file.
func normalizeAttributes(fi os.FileInfo) format.Attrs {
	var a format.Attrs
	if fi.IsDir() {
		a |= format.AttrDirectory
	} else {
		a |= format.AttrArchive
	}
	if fi.Mode().Perm()&0o200 == 0 {
		a |= format.AttrReadOnly
	}
	if strings.HasPrefix(fi.Name(), ".") {
		a |= format.AttrHidden
	}
	return a
}

// applyAttributesAndTime applies an entry's attributes and modification
// time to an extracted destination. Strictly best effort; failures are
// ignored. The read-only chmod runs after Chtimes so the time change is not
// itself rejected.
func applyAttributesAndTime(path string, attrs format.Attrs, modTime uint32) {
	t := format.DOSTimeToTime(modTime)
	_ = os.Chtimes(path, t, t)

	if attrs&format.AttrReadOnly != 0 && !attrs.IsDir() {
		if fi, err := os.Stat(path); err == nil {
			_ = os.Chmod(path, fi.Mode().Perm()&^0o222)
		}
	}
}

// headerFor stats the source file or directory and fills the header fields
// derived from it: attributes, original size, and DOS modification time.
func headerFor(name string) (format.Header, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return format.Header{}, fmt.Errorf("stat source error: %w", err)
	}

	h := format.Header{Attrs: normalizeAttributes(fi)}
	if !fi.IsDir() {
		h.OriginalSize = uint64(fi.Size())
	}

	if h.ModTime, err = format.TimeToDOSTime(fi.ModTime()); err != nil {
		return format.Header{}, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}

	return h, nil
}
