package storage

import (
	"context"
	"io"
	"time"

	"github.com/profefe/jsprof/pkg/profile"
	"golang.org/x/xerrors"
)

var (
	ErrNotFound = xerrors.New("not found")
	ErrEmpty    = xerrors.New("empty results")
)

type Writer interface {
	WriteProfile(ctx context.Context, params *WriteProfileParams, r io.Reader) (profile.Meta, error)
}

type Reader interface {
	ListServices(ctx context.Context) ([]string, error)
	FindProfiles(ctx context.Context, params *FindProfilesParams) ([]profile.Meta, error)
	FindProfileIDs(ctx context.Context, params *FindProfilesParams) ([]profile.ID, error)
	// OpenProfile returns the raw payload of the profile together with its meta.
	OpenProfile(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error)
}

type WriteProfileParams struct {
	// ExternalID is set when the profile id was already issued by another writer.
	ExternalID profile.ID
	Service    string
	Type       profile.ProfileType
	Labels     profile.Labels
	CreatedAt  time.Time
}

func (params *WriteProfileParams) Validate() error {
	if params == nil {
		return xerrors.New("nil params")
	}
	if params.Service == "" {
		return xerrors.Errorf("empty service: params %v", params)
	}
	if params.Type == profile.TypeUnknown {
		return xerrors.Errorf("unknown profile type %s: params %v", params.Type, params)
	}
	return nil
}

// NewMeta builds the meta of a profile written with params.
func (params *WriteProfileParams) NewMeta(size int64) profile.Meta {
	meta := profile.NewMeta(params.Service, params.Type, params.Labels)
	if params.ExternalID != nil {
		meta.ProfileID = params.ExternalID
	}
	if !params.CreatedAt.IsZero() {
		meta.CreatedAt = params.CreatedAt.UTC()
	}
	meta.Size = size
	return meta
}

type FindProfilesParams struct {
	Service      string
	Type         profile.ProfileType
	Labels       profile.Labels
	CreatedAtMin time.Time
	CreatedAtMax time.Time
	Limit        int
}

func (params *FindProfilesParams) Validate() error {
	if params == nil {
		return xerrors.New("nil request")
	}

	if params.Service == "" {
		return xerrors.Errorf("service empty: params %v", params)
	}
	if params.CreatedAtMin.IsZero() {
		return xerrors.Errorf("createdAt min zero: params %v", params)
	}
	if !params.CreatedAtMax.IsZero() && params.CreatedAtMin.After(params.CreatedAtMax) {
		return xerrors.Errorf("createdAt time min after max: params %v", params)
	}
	if params.Limit < 0 {
		return xerrors.Errorf("negative limit: params %v", params)
	}
	return nil
}
