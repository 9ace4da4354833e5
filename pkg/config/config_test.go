package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseConfig(t *testing.T, args ...string) Config {
	var conf Config
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	conf.RegisterFlags(f)
	require.NoError(t, f.Parse(args))
	return conf
}

func TestConfig_Defaults(t *testing.T) {
	conf := parseConfig(t)

	assert.Equal(t, defaultAddr, conf.Addr)
	assert.Equal(t, defaultCacheSize, conf.Cache.Size)
	assert.Equal(t, defaultBadgerGCDiscardRatio, conf.Badger.GCDiscardRatio)

	types, err := conf.StorageTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{StorageTypeInMemory}, types)
}

func TestConfig_StorageTypes(t *testing.T) {
	conf := parseConfig(t, "-badger.dir", "/tmp/data")
	types, err := conf.StorageTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{StorageTypeBadger}, types)

	conf = parseConfig(t, "-storage-type", "badger, inmemory")
	types, err = conf.StorageTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{StorageTypeBadger, StorageTypeInMemory}, types)

	conf = parseConfig(t, "-storage-type", "s3")
	_, err = conf.StorageTypes()
	assert.Error(t, err)
}
