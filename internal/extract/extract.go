package extract

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/smpa"
	"github.com/schollz/progressbar/v3"
)

// Command extracts all live entries of an archive into a directory.
type Command struct {
	Dir  string `short:"C" long:"directory" description:"extract into this directory" default:"."`
	Test bool   `short:"t" long:"test" description:"walk the archive without writing any file"`
	Args struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to extract"`
	} `positional-args:"yes" required:"yes"`
}

func (c *Command) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	name := string(c.Args.Archive)

	// the aggregate progress mode reports bytes of the archive processed,
	// so the archive's own size is the right ceiling for the bar.
	var bar *progressbar.ProgressBar
	if fi, err := os.Stat(name); err == nil {
		verb := "extracting"
		if c.Test {
			verb = "testing"
		}
		bar = progressbar.DefaultBytes(fi.Size(), verb)
		defer bar.Close()
	}

	r, err := smpa.OpenReader(name, smpa.ModeExtract, func(opts *smpa.ReaderOptions) {
		opts.Progress = func(_ string, n int) bool {
			if bar != nil && n > 0 {
				_ = bar.Add(n)
			}
			return true
		}
	})
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		e, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if c.Test {
			err = r.Test()
		} else {
			err = r.Extract(c.Dir, e.Path)
		}
		if err != nil {
			return fmt.Errorf(`process "%s" error: %w`, e.Path, err)
		}

		if !c.Test {
			log.Printf(`extracted "%s"`, e.Path)
		}
	}
}
