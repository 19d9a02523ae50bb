package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/smpa/internal/erase"
	"github.com/nguyengg/smpa/internal/extract"
	"github.com/nguyengg/smpa/internal/list"
	"github.com/nguyengg/smpa/internal/pack"
	"github.com/nguyengg/smpa/internal/probe"
)

var opts struct {
	List    list.Command    `command:"list" alias:"ls" description:"list the live entries of an archive"`
	Extract extract.Command `command:"extract" alias:"x" description:"extract all live entries of an archive"`
	Pack    pack.Command    `command:"pack" alias:"a" description:"pack files and directories into an archive"`
	Erase   erase.Command   `command:"delete" alias:"rm" description:"delete entries from an archive"`
	Probe   probe.Command   `command:"probe" description:"check whether a file is an SMPA archive"`
}

func main() {
	p := flags.NewParser(&opts, flags.Default)

	_, err := p.Parse()

	// need this on window to keep the console open.
	if runtime.GOOS == "windows" {
		_, _ = fmt.Fprintf(os.Stderr, "Press any key to close console\n")
		_, _ = fmt.Scanf("h")
	}

	if err != nil && !flags.WroteHelp(err) {
		os.Exit(1)
	}
}
