package storage

import (
	"context"
	"io"

	"github.com/profefe/jsprof/pkg/profile"
)

type WriteProfileFunc func(ctx context.Context, params *WriteProfileParams, r io.Reader) (profile.Meta, error)

type StubWriter struct {
	WriteProfileFunc
}

var _ Writer = (*StubWriter)(nil)

func (sw *StubWriter) WriteProfile(ctx context.Context, params *WriteProfileParams, r io.Reader) (profile.Meta, error) {
	return sw.WriteProfileFunc(ctx, params, r)
}

type ListServicesFunc func(ctx context.Context) ([]string, error)

type FindProfilesFunc func(ctx context.Context, params *FindProfilesParams) ([]profile.Meta, error)

type FindProfileIDsFunc func(ctx context.Context, params *FindProfilesParams) ([]profile.ID, error)

type OpenProfileFunc func(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error)

type StubReader struct {
	ListServicesFunc
	FindProfilesFunc
	FindProfileIDsFunc
	OpenProfileFunc
}

var _ Reader = (*StubReader)(nil)

func (sr *StubReader) ListServices(ctx context.Context) ([]string, error) {
	return sr.ListServicesFunc(ctx)
}

func (sr *StubReader) FindProfiles(ctx context.Context, params *FindProfilesParams) ([]profile.Meta, error) {
	return sr.FindProfilesFunc(ctx, params)
}

func (sr *StubReader) FindProfileIDs(ctx context.Context, params *FindProfilesParams) ([]profile.ID, error) {
	return sr.FindProfileIDsFunc(ctx, params)
}

func (sr *StubReader) OpenProfile(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error) {
	return sr.OpenProfileFunc(ctx, pid)
}
