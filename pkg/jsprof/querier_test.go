package jsprof

import (
	"context"
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/xerrors"
)

func stubOpenProfile(ptyp profile.ProfileType, data string, calls *int) storage.OpenProfileFunc {
	return func(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error) {
		*calls++
		meta := profile.Meta{
			ProfileID: pid,
			Service:   "service1",
			Type:      ptyp,
		}
		return ioutil.NopCloser(strings.NewReader(data)), meta, nil
	}
}

func TestQuerier_GetModel_cached(t *testing.T) {
	var calls int
	sr := &storage.StubReader{
		OpenProfileFunc: stubOpenProfile(profile.TypeAllocation, allocationPayload, &calls),
	}

	testLogger := log.New(zaptest.NewLogger(t))
	querier := NewQuerier(testLogger, sr, newTestCache(t))

	m1, meta, err := querier.AllocationModel(context.Background(), profile.TestID)
	require.NoError(t, err)
	assert.Equal(t, profile.TestID, meta.ProfileID)

	m2, _, err := querier.AllocationModel(context.Background(), profile.TestID)
	require.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.Equal(t, 1, calls, "model must be built once")
}

func TestQuerier_CPUModel(t *testing.T) {
	var calls int
	sr := &storage.StubReader{
		OpenProfileFunc: stubOpenProfile(profile.TypeCPU, cpuPayload, &calls),
	}

	testLogger := log.New(zaptest.NewLogger(t))
	querier := NewQuerier(testLogger, sr, newTestCache(t))

	m, meta, err := querier.CPUModel(context.Background(), profile.TestID)
	require.NoError(t, err)
	assert.Equal(t, profile.TypeCPU, meta.Type)
	assert.Equal(t, 30.0, m.EndTime())

	_, _, err = querier.AllocationModel(context.Background(), profile.TestID)
	var typeErr *ProfileTypeError
	require.True(t, xerrors.As(err, &typeErr), "want profile type error, got %v", err)
	assert.Equal(t, profile.TypeCPU, typeErr.Type)
	assert.Equal(t, profile.TypeAllocation, typeErr.Want)
}

func TestQuerier_GetModel_notFound(t *testing.T) {
	sr := &storage.StubReader{
		OpenProfileFunc: func(ctx context.Context, pid profile.ID) (io.ReadCloser, profile.Meta, error) {
			return nil, profile.Meta{}, storage.ErrNotFound
		},
	}

	testLogger := log.New(zaptest.NewLogger(t))
	querier := NewQuerier(testLogger, sr, newTestCache(t))

	_, err := querier.GetModel(context.Background(), profile.TestID)
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestQuerier_FindProfiles(t *testing.T) {
	metas := []profile.Meta{
		{ProfileID: profile.NewID(), Service: "service1", Type: profile.TypeCPU},
		{ProfileID: profile.NewID(), Service: "service1", Type: profile.TypeAllocation},
	}
	sr := &storage.StubReader{
		FindProfilesFunc: func(ctx context.Context, params *storage.FindProfilesParams) ([]profile.Meta, error) {
			return metas, nil
		},
	}

	testLogger := log.New(zaptest.NewLogger(t))
	querier := NewQuerier(testLogger, sr, newTestCache(t))

	profModels, err := querier.FindProfiles(context.Background(), &storage.FindProfilesParams{})
	require.NoError(t, err)
	require.Len(t, profModels, 2)
	assert.Equal(t, metas[0].ProfileID, profModels[0].ProfileID)
	assert.Equal(t, "cpu", profModels[0].Type)
	assert.Equal(t, "allocation", profModels[1].Type)
}
