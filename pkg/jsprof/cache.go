package jsprof

import (
	"io"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

// ModelCache keeps the most recently used profile models. Allocation node ids handed
// out for a model stay valid for as long as the model stays in the cache.
type ModelCache struct {
	models *lru.Cache[string, *ProfileModel]

	hits          prometheus.Counter
	misses        prometheus.Counter
	buildDuration *prometheus.HistogramVec
}

func NewModelCache(size int, registry prometheus.Registerer) (*ModelCache, error) {
	models, err := lru.New[string, *ProfileModel](size)
	if err != nil {
		return nil, xerrors.Errorf("could not create model cache of size %d: %w", size, err)
	}

	c := &ModelCache{
		models: models,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsprof",
			Name:      "model_cache_hits_total",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsprof",
			Name:      "model_cache_misses_total",
		}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jsprof",
			Name:      "model_build_duration_seconds",
		}, []string{"type"}),
	}

	if registry != nil {
		registry.MustRegister(c.hits, c.misses, c.buildDuration)
	}

	return c, nil
}

// Get returns the cached model of the profile.
func (c *ModelCache) Get(pid profile.ID) (*ProfileModel, bool) {
	pm, ok := c.models.Get(pid.String())
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return pm, ok
}

// Add caches the model unless the profile is already cached, and returns the cached
// one. Concurrent loads of the same profile thus settle on a single model.
func (c *ModelCache) Add(pm *ProfileModel) *ProfileModel {
	prev, ok, _ := c.models.PeekOrAdd(pm.Meta.ProfileID.String(), pm)
	if ok {
		return prev
	}
	return pm
}

func (c *ModelCache) Len() int {
	return c.models.Len()
}

// Build builds the model of the payload, recording how long it took.
func (c *ModelCache) Build(ptyp profile.ProfileType, r io.Reader) (*ProfileModel, error) {
	start := time.Now()
	pm, err := BuildProfileModel(ptyp, r)
	c.buildDuration.WithLabelValues(ptyp.String()).Observe(time.Since(start).Seconds())
	return pm, err
}
