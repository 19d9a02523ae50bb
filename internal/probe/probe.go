package probe

import (
	"fmt"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/smpa"
)

// Command recognizes the archive format by content, not file extension.
type Command struct {
	Args struct {
		File flags.Filename `positional-arg-name:"file" description:"the file to check"`
	} `positional-args:"yes" required:"yes"`
}

func (c *Command) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	if !smpa.Probe(string(c.Args.File)) {
		return fmt.Errorf(`"%s" is not an SMPA archive`, c.Args.File)
	}

	fmt.Printf(`"%s" is an SMPA archive`+"\n", c.Args.File)
	return nil
}
