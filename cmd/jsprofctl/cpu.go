package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/profefe/jsprof/pkg/cpuprofile"
	"golang.org/x/xerrors"
)

func runFrames(ctx context.Context, out io.Writer, args []string) error {
	f := newFlagSet("frames")
	from := f.Float64("from", 0, "window start, microseconds")
	to := f.Float64("to", 0, "window end, microseconds; 0 means the end of the profile")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() < 1 {
		return xerrors.New("no profile file")
	}

	pm, _, err := loadProfile(f.Arg(0), "cpu")
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Start", "Duration", "Self", "Function", "URL"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)

	// frames are reported on close; print them in the order they were opened
	var (
		rows [][]string
		open []int
	)
	pm.CPU.ForEachFrame(
		func(depth int, n *cpuprofile.Node, startTime float64) {
			open = append(open, len(rows))
			rows = append(rows, nil)
		},
		func(depth int, n *cpuprofile.Node, startTime, duration, selfTime float64) {
			idx := open[len(open)-1]
			open = open[:len(open)-1]
			rows[idx] = []string{
				formatMicros(startTime),
				formatMicros(duration),
				formatMicros(selfTime),
				strings.Repeat("  ", depth) + functionName(n),
				n.URL,
			}
		},
		*from, *to,
	)

	table.AppendBulk(rows)
	table.Render()
	return nil
}

func runTree(ctx context.Context, out io.Writer, args []string) error {
	f := newFlagSet("tree")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() < 1 {
		return xerrors.New("no profile file")
	}

	pm, _, err := loadProfile(f.Arg(0), "cpu")
	if err != nil {
		return err
	}
	m := pm.CPU

	fmt.Fprintf(out, "duration %s, sampling interval %s, max depth %d\n",
		formatMicros(m.EndTime()-m.StartTime()), formatMicros(m.SamplingInterval()), m.MaxDepth())

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Total", "Self", "Hits", "Function", "URL"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)

	m.Walk(func(n *cpuprofile.Node) error {
		if n.IsHead() {
			return nil
		}
		table.Append([]string{
			formatMicros(n.TotalTime),
			formatMicros(n.SelfTime),
			strconv.FormatInt(n.HitCount, 10),
			strings.Repeat("  ", n.Depth) + functionName(n),
			n.URL,
		})
		return nil
	})
	table.Render()
	return nil
}

func functionName(n *cpuprofile.Node) string {
	if n.FunctionName == "" {
		return "(anonymous)"
	}
	return n.FunctionName
}

func formatMicros(us float64) string {
	return strconv.FormatFloat(us/1000, 'f', 3, 64) + "ms"
}
