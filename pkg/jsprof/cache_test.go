package jsprof

import (
	"strings"
	"testing"

	"github.com/profefe/jsprof/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestModelCache_AddKeepsFirstModel(t *testing.T) {
	cache, err := NewModelCache(2, prometheus.NewRegistry())
	require.NoError(t, err)

	pid := profile.NewID()

	pm1, err := cache.Build(profile.TypeCPU, strings.NewReader(cpuPayload))
	require.NoError(t, err)
	pm1.Meta.ProfileID = pid

	pm2, err := cache.Build(profile.TypeCPU, strings.NewReader(cpuPayload))
	require.NoError(t, err)
	pm2.Meta.ProfileID = pid

	assert.Same(t, pm1, cache.Add(pm1))
	assert.Same(t, pm1, cache.Add(pm2))

	got, ok := cache.Get(pid)
	require.True(t, ok)
	assert.Same(t, pm1, got)
}

func TestModelCache_Evicts(t *testing.T) {
	cache, err := NewModelCache(1, nil)
	require.NoError(t, err)

	pid1, pid2 := profile.NewID(), profile.NewID()
	cache.Add(&ProfileModel{Meta: profile.Meta{ProfileID: pid1}})
	cache.Add(&ProfileModel{Meta: profile.Meta{ProfileID: pid2}})

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get(pid1)
	assert.False(t, ok)
	_, ok = cache.Get(pid2)
	assert.True(t, ok)
}

func TestNewModelCache_BadSize(t *testing.T) {
	_, err := NewModelCache(0, nil)
	assert.Error(t, err)
}

func TestBuildProfileModel(t *testing.T) {
	pm, err := BuildProfileModel(profile.TypeCPU, strings.NewReader(cpuPayload))
	require.NoError(t, err)
	require.NotNil(t, pm.CPU)
	assert.Nil(t, pm.Allocation)
	assert.Equal(t, profile.TypeCPU, pm.Meta.Type)

	pm, err = BuildProfileModel(profile.TypeAllocation, strings.NewReader(allocationPayload))
	require.NoError(t, err)
	require.NotNil(t, pm.Allocation)
	assert.Nil(t, pm.CPU)
}

func TestBuildProfileModel_Malformed(t *testing.T) {
	cases := []struct {
		name string
		ptyp profile.ProfileType
		data string
	}{
		{"cpu bad json", profile.TypeCPU, `{"head":`},
		{"cpu no head", profile.TypeCPU, `{"startTime": 0, "endTime": 1}`},
		{"allocation bad json", profile.TypeAllocation, `[]`},
		{"allocation no tree", profile.TypeAllocation, `{"strings": [""]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildProfileModel(tc.ptyp, strings.NewReader(tc.data))
			require.Error(t, err)

			var ierr *profile.IngestionError
			assert.True(t, xerrors.As(err, &ierr), "want ingestion error, got %v", err)
		})
	}

	_, err := BuildProfileModel(profile.TypeUnknown, strings.NewReader(cpuPayload))
	assert.Error(t, err)
}
