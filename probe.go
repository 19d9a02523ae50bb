package smpa

import (
	"io"
	"os"

	"github.com/nguyengg/smpa/format"
)

// Probe reports whether the named file looks like an archive, by content:
// it must start with the 8-byte format magic. Any open or read failure
// simply reports false; Probe never returns an error.
func Probe(name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	var buf [len(format.Magic)]byte
	if _, err = io.ReadFull(f, buf[:]); err != nil {
		return false
	}

	return string(buf[:]) == format.Magic
}
