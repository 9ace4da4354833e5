package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/profefe/jsprof/agent"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/profile"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

func runPush(ctx context.Context, out io.Writer, args []string) error {
	f := newFlagSet("push")
	addr := f.String("addr", agent.DefaultServerAddr, "jsprof server address")
	service := f.String("service", "", "service name")
	ptype := f.String("type", "", "profile type: cpu or allocation; guessed when empty")
	labels := f.String("labels", "", "comma-separated key=value labels")
	attempts := f.Int("attempts", 5, "maximum number of upload attempts")
	verbose := f.Bool("v", false, "log upload attempts")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() < 1 {
		return xerrors.New("no profile file")
	}
	if *service == "" {
		return xerrors.New("no service")
	}

	// validate locally so a bad file is never sent
	pm, data, err := loadProfile(f.Arg(0), *ptype)
	if err != nil {
		return err
	}

	var lbls profile.Labels
	if err := lbls.FromString(*labels); err != nil {
		return err
	}
	kvs := make([]string, 0, 2*len(lbls))
	for _, l := range lbls {
		kvs = append(kvs, l.Key, l.Value)
	}

	logger := log.NewNop()
	if *verbose {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = log.New(zl)
	}

	client := agent.NewClient(
		*addr,
		agent.WithLabels(kvs...),
		agent.WithRetry(500*time.Millisecond, 5*time.Second, *attempts),
		agent.WithLogger(logger),
	)

	prof, err := client.Push(ctx, *service, pm.Meta.Type, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", prof.ProfileID, prof.Type, prof.Service, strings.TrimSpace(prof.Labels.String()))
	return nil
}
