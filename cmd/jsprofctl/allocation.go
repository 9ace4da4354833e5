package main

import (
	"context"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/profefe/jsprof/pkg/allocation"
	"golang.org/x/xerrors"
)

func loadAllocationModel(args []string) (*allocation.Model, []string, error) {
	f := newFlagSet("allocation")
	if err := f.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.NArg() < 1 {
		return nil, nil, xerrors.New("no profile file")
	}

	pm, _, err := loadProfile(f.Arg(0), "allocation")
	if err != nil {
		return nil, nil, err
	}
	return pm.Allocation, f.Args()[1:], nil
}

func runTops(ctx context.Context, out io.Writer, args []string) error {
	m, _, err := loadAllocationModel(args)
	if err != nil {
		return err
	}
	writeNodes(out, m.SerializeTraceTops())
	return nil
}

// runCallers expands the listed ids one after another. Ids are handed out in a
// stable order, so the ids printed by "tops" and earlier "callers" runs stay valid.
func runCallers(ctx context.Context, out io.Writer, args []string) error {
	m, ids, err := loadAllocationModel(args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return xerrors.New("no node ids")
	}

	m.SerializeTraceTops()

	var callers []allocation.SerializedNode
	for _, v := range ids {
		id, err := strconv.Atoi(v)
		if err != nil {
			return xerrors.Errorf("bad node id %q: %w", v, err)
		}
		callers, err = m.SerializeCallers(id)
		if err != nil {
			return err
		}
	}
	writeNodes(out, callers)
	return nil
}

func writeNodes(out io.Writer, nodes []allocation.SerializedNode) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Function", "Script", "Count", "Size", "Callers"})
	table.SetAutoFormatHeaders(false)
	for _, n := range nodes {
		hasCallers := ""
		if n.HasChildren {
			hasCallers = "+"
		}
		table.Append([]string{
			strconv.Itoa(n.ID),
			n.Name,
			n.ScriptName,
			humanize.Comma(n.Count),
			humanize.IBytes(uint64(n.Size)),
			hasCallers,
		})
	}
	table.Render()
}
