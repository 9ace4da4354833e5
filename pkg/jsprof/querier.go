package jsprof

import (
	"context"
	"io"

	"github.com/profefe/jsprof/pkg/allocation"
	"github.com/profefe/jsprof/pkg/cpuprofile"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"golang.org/x/xerrors"
)

// ProfileTypeError is returned when a profile is asked for a model of another type.
type ProfileTypeError struct {
	ProfileID profile.ID
	Type      profile.ProfileType
	Want      profile.ProfileType
}

func (e *ProfileTypeError) Error() string {
	return "profile " + e.ProfileID.String() + " is " + e.Type.String() + ", not " + e.Want.String()
}

type Querier struct {
	logger *log.Logger
	sr     storage.Reader
	cache  *ModelCache
}

func NewQuerier(logger *log.Logger, sr storage.Reader, cache *ModelCache) *Querier {
	return &Querier{
		sr:     sr,
		logger: logger,
		cache:  cache,
	}
}

func (q *Querier) GetServices(ctx context.Context) ([]string, error) {
	return q.sr.ListServices(ctx)
}

func (q *Querier) FindProfiles(ctx context.Context, params *storage.FindProfilesParams) ([]Profile, error) {
	metas, err := q.sr.FindProfiles(ctx, params)
	if err != nil {
		return nil, err
	}

	profModels := make([]Profile, 0, len(metas))
	for _, meta := range metas {
		profModels = append(profModels, ProfileFromProfileMeta(meta))
	}
	return profModels, nil
}

// OpenProfile returns the raw payload of the profile as it was uploaded.
func (q *Querier) OpenProfile(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error) {
	return q.sr.OpenProfile(ctx, pid)
}

// GetModel returns the model of the profile, loading and building it on a cache miss.
func (q *Querier) GetModel(ctx context.Context, pid profile.ID) (*ProfileModel, error) {
	if pm, ok := q.cache.Get(pid); ok {
		return pm, nil
	}

	rc, meta, err := q.sr.OpenProfile(ctx, pid)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pm, err := q.cache.Build(meta.Type, rc)
	if err != nil {
		return nil, xerrors.Errorf("could not build model of profile %v: %w", pid, err)
	}
	pm.Meta = meta

	q.logger.Debugw("built profile model", "pid", pid, "type", meta.Type)

	return q.cache.Add(pm), nil
}

func (q *Querier) CPUModel(ctx context.Context, pid profile.ID) (*cpuprofile.Model, profile.Meta, error) {
	pm, err := q.GetModel(ctx, pid)
	if err != nil {
		return nil, profile.Meta{}, err
	}
	if pm.CPU == nil {
		return nil, pm.Meta, &ProfileTypeError{ProfileID: pid, Type: pm.Meta.Type, Want: profile.TypeCPU}
	}
	return pm.CPU, pm.Meta, nil
}

func (q *Querier) AllocationModel(ctx context.Context, pid profile.ID) (*allocation.Model, profile.Meta, error) {
	pm, err := q.GetModel(ctx, pid)
	if err != nil {
		return nil, profile.Meta{}, err
	}
	if pm.Allocation == nil {
		return nil, pm.Meta, &ProfileTypeError{ProfileID: pid, Type: pm.Meta.Type, Want: profile.TypeAllocation}
	}
	return pm.Allocation, pm.Meta, nil
}
