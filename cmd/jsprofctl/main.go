package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/profefe/jsprof/version"
)

const usage = `usage: jsprofctl <command> [flags] <args>

commands:
  tops    <file>            allocation trace tops, by size
  callers <file> <id>...    expand callers of the nodes listed by "tops"
  frames  <file>            call frames of a cpu profile
  tree    <file>            call tree of a cpu profile
  push    <file>            upload the profile to a jsprof server
  version                   print version
`

type command func(ctx context.Context, out io.Writer, args []string) error

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var run command
	switch cmd := strings.ToLower(os.Args[1]); cmd {
	case "tops":
		run = runTops
	case "callers":
		run = runCallers
	case "frames":
		run = runFrames
	case "tree":
		run = runTree
	case "push":
		run = runPush
	case "version":
		fmt.Println(version.String())
		return
	default:
		fmt.Fprintf(os.Stderr, "bad command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err := run(context.Background(), os.Stdout, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "jsprofctl: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.Usage = func() {
		fmt.Fprint(f.Output(), usage)
		f.PrintDefaults()
	}
	return f
}
