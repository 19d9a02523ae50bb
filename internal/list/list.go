package list

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/smpa"
	"github.com/nguyengg/smpa/format"
)

// Command lists the live entries of an archive.
type Command struct {
	Raw  bool `long:"raw" description:"print exact byte counts instead of humanized sizes"`
	Args struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to list"`
	} `positional-args:"yes" required:"yes"`
}

func (c *Command) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	r, err := smpa.OpenReader(string(c.Args.Archive), smpa.ModeList)
	if err != nil {
		return err
	}
	defer r.Close()

	var entries int
	var originalTotal, packedTotal uint64

	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(os.Stdout, "%s  %s  %10s  %10s  %s\n",
			attrString(e.Attrs),
			e.ModTime().Format("2006-01-02 15:04:05"),
			c.size(e.OriginalSize),
			c.size(e.PackedSize),
			e.Path)

		entries++
		originalTotal += e.OriginalSize
		packedTotal += e.PackedSize

		if err = r.Skip(); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "%d entries, %s original, %s packed\n",
		entries, c.size(originalTotal), c.size(packedTotal))

	return nil
}

func (c *Command) size(n uint64) string {
	if c.Raw {
		return fmt.Sprintf("%d", n)
	}
	return humanize.Bytes(n)
}

func attrString(a format.Attrs) string {
	b := []byte("-----")
	if a.IsDir() {
		b[0] = 'd'
	}
	if a&format.AttrReadOnly != 0 {
		b[1] = 'r'
	}
	if a&format.AttrHidden != 0 {
		b[2] = 'h'
	}
	if a&format.AttrSystem != 0 {
		b[3] = 's'
	}
	if a&format.AttrArchive != 0 {
		b[4] = 'a'
	}
	return string(b)
}
