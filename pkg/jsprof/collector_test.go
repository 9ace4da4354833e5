package jsprof

import (
	"context"
	"fmt"
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

func newTestCache(t *testing.T) *ModelCache {
	cache, err := NewModelCache(10, nil)
	require.NoError(t, err)
	return cache
}

func TestCollector_WriteProfile(t *testing.T) {
	cases := []struct {
		params *storage.WriteProfileParams
		data   string
	}{
		{
			&storage.WriteProfileParams{
				Service: "service1",
				Type:    profile.TypeCPU,
			},
			cpuPayload,
		},
		{
			&storage.WriteProfileParams{
				Service: "service1",
				Type:    profile.TypeAllocation,
			},
			allocationPayload,
		},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("type=%s", tc.params.Type), func(t *testing.T) {
			sw := &storage.StubWriter{
				WriteProfileFunc: func(ctx context.Context, params *storage.WriteProfileParams, r io.Reader) (profile.Meta, error) {
					assert.False(t, params.CreatedAt.IsZero(), "params.CreatedAt must be set")

					data, err := ioutil.ReadAll(r)
					require.NoError(t, err)
					require.Equal(t, tc.data, string(data))

					meta := params.NewMeta(int64(len(data)))
					meta.ProfileID = profile.TestID
					return meta, nil
				},
			}

			testLogger := log.New(zaptest.NewLogger(t))
			cache := newTestCache(t)
			collector := NewCollector(testLogger, sw, cache)

			profModel, err := collector.WriteProfile(context.Background(), tc.params, strings.NewReader(tc.data))
			require.NoError(t, err)

			assert.Equal(t, profile.TestID, profModel.ProfileID)
			assert.Equal(t, tc.params.Service, profModel.Service)
			assert.Equal(t, tc.params.Type.String(), profModel.Type)
			assert.EqualValues(t, len(tc.data), profModel.Size)

			pm, ok := cache.Get(profile.TestID)
			require.True(t, ok, "collected profile must be cached")
			assert.Equal(t, tc.params.Type, pm.Meta.Type)
		})
	}
}

func TestCollector_WriteProfile_Malformed(t *testing.T) {
	sw := &storage.StubWriter{
		WriteProfileFunc: func(ctx context.Context, params *storage.WriteProfileParams, r io.Reader) (profile.Meta, error) {
			t.Fatal("malformed profile must not be stored")
			return profile.Meta{}, nil
		},
	}
	testLogger := log.New(zaptest.NewLogger(t))
	collector := NewCollector(testLogger, sw, newTestCache(t))

	params := &storage.WriteProfileParams{
		Service: "service1",
		Type:    profile.TypeCPU,
	}
	_, err := collector.WriteProfile(context.Background(), params, strings.NewReader(`{"head": {"id": 1, "hitCount": -1}, "startTime": 0, "endTime": 1}`))
	require.Error(t, err)

	var ierr *profile.IngestionError
	assert.True(t, xerrors.As(err, &ierr), "want ingestion error, got %v", err)
}

func TestCollector_WriteProfile_StorageFailure(t *testing.T) {
	storageErr := xerrors.New("unexpected storage error")
	sw := &storage.StubWriter{
		WriteProfileFunc: func(ctx context.Context, params *storage.WriteProfileParams, r io.Reader) (profile.Meta, error) {
			return profile.Meta{}, storageErr
		},
	}
	testLogger := log.New(zaptest.NewLogger(t))
	cache := newTestCache(t)
	collector := NewCollector(testLogger, sw, cache)

	params := &storage.WriteProfileParams{
		Service: "service1",
		Type:    profile.TypeAllocation,
	}
	_, err := collector.WriteProfile(context.Background(), params, strings.NewReader(allocationPayload))
	assert.Equal(t, storageErr, err)
	assert.Equal(t, 0, cache.Len())
}
