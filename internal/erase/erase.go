package erase

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/smpa"
)

// Command tombstones entries in an archive. Paths ending in a separator or
// the "*.*" wildcard delete the directory and everything nested under it.
type Command struct {
	Args struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to delete from"`
		Paths   []string       `positional-arg-name:"path" description:"in-archive paths to delete" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

func (c *Command) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return smpa.Erase(ctx, string(c.Args.Archive), c.Args.Paths)
}
