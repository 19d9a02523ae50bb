package pack

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/smpa"
)

// Command packs files and directories into an archive, creating it if
// needed and superseding same-path entries if it exists.
type Command struct {
	Root    string `short:"r" long:"root" description:"source root that the given paths are relative to" default:"."`
	SubPath string `short:"s" long:"sub-path" description:"in-archive subdirectory to pack under"`
	Flatten bool   `long:"flatten" description:"discard directory structure; pack only files, all at one archive level"`
	Move    bool   `short:"m" long:"move" description:"delete the source files and directories after packing"`
	Args    struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to create or append to"`
		Paths   []string       `positional-arg-name:"path" description:"files or directories relative to the source root" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (c *Command) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rels, err := c.expand()
	if err != nil {
		return err
	}

	return smpa.Pack(ctx, string(c.Args.Archive), c.SubPath, c.Root, rels, func(opts *smpa.PackOptions) {
		opts.Flatten = c.Flatten
		opts.RemoveSource = c.Move
		opts.Progress = func(name string, n int) bool {
			if n < 0 {
				log.Printf("%3d%% %s", -n, name)
			}
			return true
		}
	})
}

// expand walks each given path under the root, producing the flat
// source-relative list the packer consumes: directories carry a trailing
// separator, files do not.
func (c *Command) expand() ([]string, error) {
	var rels []string

	for _, p := range c.Args.Paths {
		abs := filepath.Join(c.Root, p)

		fi, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf(`stat "%s" error: %w`, abs, err)
		}

		if !fi.IsDir() {
			rels = append(rels, p)
			continue
		}

		if err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			rel, err := filepath.Rel(c.Root, path)
			if err != nil {
				return err
			}

			switch {
			case d.IsDir():
				rels = append(rels, rel+string(filepath.Separator))
			case d.Type().IsRegular():
				rels = append(rels, rel)
			}

			return nil
		}); err != nil {
			return nil, fmt.Errorf(`walk "%s" error: %w`, abs, err)
		}
	}

	return rels, nil
}
