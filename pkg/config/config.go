package config

import (
	"flag"
	"time"

	"github.com/profefe/jsprof/pkg/log"
)

const (
	defaultAddr        = ":10100"
	defaultExitTimeout = 5 * time.Second
	defaultCacheSize   = 64
)

type Config struct {
	Addr        string
	ExitTimeout time.Duration
	StorageType string
	Logger      log.Config
	Badger      BadgerConfig
	Cache       CacheConfig
}

func (conf *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&conf.Addr, "addr", defaultAddr, "address to listen")
	f.DurationVar(&conf.ExitTimeout, "exit-timeout", defaultExitTimeout, "server shutdown timeout")

	conf.Logger.RegisterFlags(f)
	conf.registerStorageFlags(f)
	conf.Cache.RegisterFlags(f)
}

// CacheConfig configures the cache of built profile models.
type CacheConfig struct {
	Size int
}

func (conf *CacheConfig) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&conf.Size, "cache.size", defaultCacheSize, "number of profile models kept in memory")
}
