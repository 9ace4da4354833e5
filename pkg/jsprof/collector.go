package jsprof

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"time"

	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/storage"
	"golang.org/x/xerrors"
)

type Collector struct {
	logger *log.Logger
	sw     storage.Writer
	cache  *ModelCache
}

func NewCollector(logger *log.Logger, sw storage.Writer, cache *ModelCache) *Collector {
	return &Collector{
		logger: logger,
		sw:     sw,
		cache:  cache,
	}
}

// WriteProfile builds the model of the payload before storing it, so malformed
// payloads never reach the storage. The built model seeds the cache.
func (c *Collector) WriteProfile(ctx context.Context, params *storage.WriteProfileParams, r io.Reader) (Profile, error) {
	if err := params.Validate(); err != nil {
		return Profile{}, err
	}

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return Profile{}, xerrors.Errorf("could not read profile data: %w", err)
	}

	pm, err := c.cache.Build(params.Type, bytes.NewReader(data))
	if err != nil {
		c.logger.Infow("rejected profile", "service", params.Service, "type", params.Type, log.MultiLine("reason", err.Error()))
		return Profile{}, err
	}

	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}

	meta, err := c.sw.WriteProfile(ctx, params, bytes.NewReader(data))
	if err != nil {
		return Profile{}, err
	}

	pm.Meta = meta
	c.cache.Add(pm)

	c.logger.Debugw("collected profile", "pid", meta.ProfileID, "service", meta.Service, "type", meta.Type, "size", meta.Size)

	return ProfileFromProfileMeta(meta), nil
}
