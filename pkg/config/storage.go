package config

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	StorageTypeInMemory = "inmemory"
	StorageTypeBadger   = "badger"

	defaultStorageType = "auto"

	defaultBadgerRetentionPeriod = 5 * 24 * time.Hour
	defaultBadgerGCInternal      = 5 * time.Minute
	defaultBadgerGCDiscardRatio  = 0.7
)

func (conf *Config) registerStorageFlags(f *flag.FlagSet) {
	f.StringVar(&conf.StorageType, "storage-type", defaultStorageType, "storage type, comma-separated; the first one serves reads")

	conf.Badger.RegisterFlags(f)
}

// StorageTypes returns the configured storage types. Every type receives writes.
func (conf *Config) StorageTypes() ([]string, error) {
	if conf.StorageType != "" && conf.StorageType != defaultStorageType {
		var types []string
		for _, st := range strings.Split(conf.StorageType, ",") {
			st = strings.TrimSpace(st)
			switch st {
			case StorageTypeInMemory, StorageTypeBadger:
			default:
				return nil, fmt.Errorf("unknown storage type %q", st)
			}
			types = append(types, st)
		}
		return types, nil
	}

	// storage type is determined by storage-related flags
	if conf.Badger.Dir != "" {
		return []string{StorageTypeBadger}, nil
	}
	return []string{StorageTypeInMemory}, nil
}

type BadgerConfig struct {
	Dir            string
	ProfileTTL     time.Duration
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func (conf *BadgerConfig) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&conf.Dir, "badger.dir", "", "badger data dir")
	f.DurationVar(&conf.ProfileTTL, "badger.profile-ttl", defaultBadgerRetentionPeriod, "badger profile data ttl")
	f.DurationVar(&conf.GCInterval, "badger.gc-interval", defaultBadgerGCInternal, "interval in which the badger garbage collector is run")
	f.Float64Var(&conf.GCDiscardRatio, "badger.gc-discard-ratio", defaultBadgerGCDiscardRatio, "a badger file is rewritten if this ratio of the file can be discarded")
}
