package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/profefe/jsprof/pkg/config"
	"github.com/profefe/jsprof/pkg/jsprof"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/middleware"
	"github.com/profefe/jsprof/pkg/storage"
	storageBadger "github.com/profefe/jsprof/pkg/storage/badger"
	"github.com/profefe/jsprof/pkg/storage/inmemory"
	"github.com/profefe/jsprof/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"
)

func main() {
	printVersion := flag.Bool("version", false, "print version and exit")

	var conf config.Config
	conf.RegisterFlags(flag.CommandLine)

	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger, err := conf.Logger.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger, conf); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, conf config.Config) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sr, sw, closer, err := initStorage(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closer())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	cache, err := jsprof.NewModelCache(conf.Cache.Size, registry)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	jsprof.SetupRoutes(
		mux,
		logger,
		registry,
		jsprof.NewCollector(logger, sw, cache),
		jsprof.NewQuerier(logger, sr, cache),
	)

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	h := middleware.LoggingHandler(logger.With("svc", "http"), mux)
	h = middleware.RecoveryHandler(logger, h)

	server := http.Server{
		Addr:    conf.Addr,
		Handler: h,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infow("server is running", "addr", server.Addr, "version", version.Version)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigs:
		logger.Info("exiting")
	case err := <-errc:
		if err != http.ErrServerClosed {
			return xerrors.Errorf("terminated: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, conf.ExitTimeout)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// initStorage opens every configured storage. The first one serves reads; writes go
// to all of them.
func initStorage(ctx context.Context, logger *log.Logger, conf config.Config) (sr storage.Reader, sw storage.Writer, closer func() error, err error) {
	types, err := conf.StorageTypes()
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		readers []storage.Reader
		writers []storage.Writer
		closers []func() error
	)
	closeAll := func() (err error) {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
		return err
	}

	for _, styp := range types {
		switch styp {
		case config.StorageTypeInMemory:
			st := inmemory.New()
			readers = append(readers, st)
			writers = append(writers, st)
		case config.StorageTypeBadger:
			st, closeBadger, err := initBadgerStorage(ctx, logger, conf.Badger)
			if err != nil {
				return nil, nil, nil, multierr.Append(err, closeAll())
			}
			readers = append(readers, st)
			writers = append(writers, st)
			closers = append(closers, closeBadger)
		}
		logger.Infow("storage initialized", "type", styp)
	}

	if len(writers) == 1 {
		return readers[0], writers[0], closeAll, nil
	}
	return readers[0], storage.NewMultiWriter(writers...), closeAll, nil
}

func initBadgerStorage(ctx context.Context, logger *log.Logger, conf config.BadgerConfig) (*storageBadger.Storage, func() error, error) {
	if conf.Dir == "" {
		return nil, nil, xerrors.New("badger storage requires -badger.dir")
	}

	db, err := badger.Open(badger.DefaultOptions(conf.Dir))
	if err != nil {
		return nil, nil, xerrors.Errorf("could not open db: %w", err)
	}

	logger = logger.With("storage", "badger")

	gcCtx, gcCancel := context.WithCancel(ctx)
	gcDone := make(chan struct{})
	go func() {
		defer close(gcDone)
		runBadgerGC(gcCtx, logger, db, conf.GCInterval, conf.GCDiscardRatio)
	}()

	closer := func() error {
		gcCancel()
		<-gcDone
		return db.Close()
	}

	return storageBadger.New(logger, db, conf.ProfileTTL), closer, nil
}

func runBadgerGC(ctx context.Context, logger *log.Logger, db *badger.DB, interval time.Duration, discardRatio float64) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var reclaimed bool
	gc:
		for {
			switch err := db.RunValueLogGC(discardRatio); err {
			case nil:
				reclaimed = true
			case badger.ErrNoRewrite:
				break gc
			default:
				logger.Errorw("badger gc failed", "error", err)
				break gc
			}
		}
		logger.Debugw("badger gc done", "reclaimed", reclaimed)
	}
}
