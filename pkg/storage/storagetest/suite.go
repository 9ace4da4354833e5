package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"testing"
	"time"

	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StorageTestSuite runs the same checks against any storage.Reader/storage.Writer pair.
type StorageTestSuite struct {
	suite.Suite

	Reader storage.Reader
	Writer storage.Writer
}

func (ts *StorageTestSuite) TestWriteProfile() {
	service := genServiceName()
	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	wparams := &storage.WriteProfileParams{
		Service:   service,
		Type:      profile.TypeCPU,
		Labels:    profile.Labels{{Key: "key1", Value: "val1"}},
		CreatedAt: createdAt,
	}
	meta, data := WriteProfile(ts.T(), ts.Writer, wparams, CPUPayload(1))

	ts.Equal(int64(len(data)), meta.Size)
	ts.True(createdAt.Equal(meta.CreatedAt), "created at %v, want %v", meta.CreatedAt, createdAt)

	rc, gotMeta, err := ts.Reader.OpenProfile(context.Background(), meta.ProfileID)
	ts.Require().NoError(err)
	defer rc.Close()

	gotData, err := ioutil.ReadAll(rc)
	ts.Require().NoError(err)
	ts.Equal(data, gotData)

	ts.Equal(meta.ProfileID, gotMeta.ProfileID)
	ts.Equal(meta.Service, gotMeta.Service)
	ts.Equal(meta.Type, gotMeta.Type)
	ts.Equal(meta.Labels, gotMeta.Labels)
}

func (ts *StorageTestSuite) TestWriteProfile_ExternalID() {
	pid := profile.NewID()
	meta, _ := WriteProfile(ts.T(), ts.Writer, &storage.WriteProfileParams{
		ExternalID: pid,
		Service:    genServiceName(),
		Type:       profile.TypeAllocation,
	}, AllocationPayload(1))

	ts.Equal(pid, meta.ProfileID)
}

func (ts *StorageTestSuite) TestWriteProfile_Invalid() {
	_, err := ts.Writer.WriteProfile(context.Background(), &storage.WriteProfileParams{
		Type: profile.TypeCPU,
	}, bytes.NewReader(CPUPayload(1)))
	ts.Error(err)

	_, err = ts.Writer.WriteProfile(context.Background(), &storage.WriteProfileParams{
		Service: genServiceName(),
	}, bytes.NewReader(CPUPayload(1)))
	ts.Error(err)
}

func (ts *StorageTestSuite) TestOpenProfile_NotFound() {
	_, _, err := ts.Reader.OpenProfile(context.Background(), profile.NewID())
	ts.Equal(storage.ErrNotFound, err)
}

func (ts *StorageTestSuite) TestFindProfileIDs() {
	testFindProfileIDs(ts.T(), ts.Reader, ts.Writer)
}

func (ts *StorageTestSuite) TestFindProfiles() {
	service := genServiceName()

	var pids []profile.ID
	createdAt := time.Now().UTC().Truncate(time.Second)
	for n := 0; n < 3; n++ {
		meta, _ := WriteProfile(ts.T(), ts.Writer, &storage.WriteProfileParams{
			Service:   service,
			Type:      profile.TypeCPU,
			Labels:    profile.Labels{{Key: "n", Value: fmt.Sprint(n)}},
			CreatedAt: createdAt.Add(time.Duration(n) * time.Minute),
		}, CPUPayload(n))
		pids = append(pids, meta.ProfileID)
	}

	metas, err := ts.Reader.FindProfiles(context.Background(), &storage.FindProfilesParams{
		Service:      service,
		CreatedAtMin: createdAt,
	})
	ts.Require().NoError(err)
	ts.Require().Len(metas, 3)

	// newest first
	for i, meta := range metas {
		ts.Equal(pids[2-i], meta.ProfileID)
		ts.Equal(profile.Labels{{Key: "n", Value: fmt.Sprint(2 - i)}}, meta.Labels)
	}
}

func (ts *StorageTestSuite) TestListServices() {
	testListServices(ts.T(), ts.Reader, ts.Writer)
}

func testFindProfileIDs(t *testing.T, sr storage.Reader, sw storage.Writer) {
	service1 := genServiceName()
	service2 := genServiceName()

	for n := 1; n <= 2; n++ {
		params := &storage.WriteProfileParams{
			Service: service1,
			Type:    profile.TypeCPU,
			Labels:  profile.Labels{{Key: "key1", Value: "val1"}},
		}
		WriteProfile(t, sw, params, CPUPayload(n))
	}

	// a profile of different service
	WriteProfile(t, sw, &storage.WriteProfileParams{
		Service: service2,
		Type:    profile.TypeCPU,
		Labels:  profile.Labels{{Key: "key1", Value: "val1"}},
	}, CPUPayload(3))

	// a profile of different type
	WriteProfile(t, sw, &storage.WriteProfileParams{
		Service: service1,
		Type:    profile.TypeAllocation,
		Labels:  profile.Labels{{Key: "key1", Value: "val1"}, {Key: "key2", Value: "val2"}},
	}, AllocationPayload(1))

	// a profile of different labels
	WriteProfile(t, sw, &storage.WriteProfileParams{
		Service: service1,
		Type:    profile.TypeAllocation,
		Labels:  profile.Labels{{Key: "key3", Value: "val3"}},
	}, AllocationPayload(2))

	// just some old timestamp to simplify querying
	createdAtMin := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("by service", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service:      service1,
			CreatedAtMin: createdAtMin,
		}
		ids, err := sr.FindProfileIDs(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, ids, 4)
	})

	t.Run("by service-type", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service:      service1,
			Type:         profile.TypeCPU,
			CreatedAtMin: createdAtMin,
		}
		ids, err := sr.FindProfileIDs(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, ids, 2)
	})

	t.Run("by service-labels", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service:      service1,
			Labels:       profile.Labels{{Key: "key1", Value: "val1"}},
			CreatedAtMin: createdAtMin,
		}
		ids, err := sr.FindProfileIDs(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, ids, 3)
	})

	t.Run("by service-type-labels", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service:      service1,
			Type:         profile.TypeAllocation,
			Labels:       profile.Labels{{Key: "key2", Value: "val2"}},
			CreatedAtMin: createdAtMin,
		}
		ids, err := sr.FindProfileIDs(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, ids, 1)
	})

	t.Run("with limit", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service:      service1,
			CreatedAtMin: createdAtMin,
			Limit:        2,
		}
		ids, err := sr.FindProfileIDs(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, ids, 2)
	})

	t.Run("with time window", func(t *testing.T) {
		service := genServiceName()
		createdAt := time.Now().UTC().Truncate(time.Second)

		// store 4 new profiles created at t-1h, t, t+1m, t+1h
		offsets := []time.Duration{-time.Hour, 0, time.Minute - time.Second, time.Hour}
		for n, offset := range offsets {
			WriteProfile(t, sw, &storage.WriteProfileParams{
				Service:   service,
				Type:      profile.TypeCPU,
				CreatedAt: createdAt.Add(offset),
			}, CPUPayload(n))
		}

		// searching with [t, t+1m] must filter out results outside of the time window
		params := &storage.FindProfilesParams{
			Service:      service,
			Type:         profile.TypeCPU,
			CreatedAtMin: createdAt,
			CreatedAtMax: createdAt.Add(time.Minute),
		}
		ids, err := sr.FindProfileIDs(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, ids, 2)
	})

	t.Run("nothing found", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service:      service1,
			Type:         profile.TypeAllocation,
			Labels:       profile.Labels{{Key: "key3", Value: "val1"}},
			CreatedAtMin: createdAtMin,
		}
		_, err := sr.FindProfileIDs(context.Background(), params)
		require.Equal(t, storage.ErrNotFound, err)
	})

	t.Run("no service", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Type:         profile.TypeAllocation,
			CreatedAtMin: createdAtMin,
		}
		_, err := sr.FindProfileIDs(context.Background(), params)
		require.Error(t, err)
	})

	t.Run("no createdAtMin", func(t *testing.T) {
		params := &storage.FindProfilesParams{
			Service: service1,
			Type:    profile.TypeAllocation,
		}
		_, err := sr.FindProfileIDs(context.Background(), params)
		require.Error(t, err)
	})
}

func testListServices(t *testing.T, sr storage.Reader, sw storage.Writer) {
	service1 := genServiceName()
	service2 := genServiceName()

	for n := 1; n <= 2; n++ {
		params := &storage.WriteProfileParams{
			Service: service1,
			Type:    profile.TypeCPU,
			Labels:  profile.Labels{{Key: "key1", Value: "val1"}},
		}
		WriteProfile(t, sw, params, CPUPayload(n))
	}

	// a profile of different service
	WriteProfile(t, sw, &storage.WriteProfileParams{
		Service: service2,
		Type:    profile.TypeCPU,
		Labels:  profile.Labels{{Key: "key1", Value: "val1"}},
	}, CPUPayload(3))

	services, err := sr.ListServices(context.Background())
	require.NoError(t, err)

	sset := make(map[string]struct{})
	for _, s := range services {
		_, ok := sset[s]
		assert.False(t, ok, "duplicate service %q in list %v", s, services)
		sset[s] = struct{}{}
	}
	assert.Contains(t, sset, service1)
	assert.Contains(t, sset, service2)
}

// WriteProfile writes the payload and checks the returned meta.
func WriteProfile(t *testing.T, sw storage.Writer, params *storage.WriteProfileParams, data []byte) (profile.Meta, []byte) {
	t.Helper()

	meta, err := sw.WriteProfile(context.Background(), params, bytes.NewReader(data))
	require.NoError(t, err)
	require.NotEmpty(t, meta.ProfileID)
	require.Equal(t, params.Service, meta.Service)
	require.Equal(t, params.Type, meta.Type)
	require.False(t, meta.CreatedAt.IsZero())

	return meta, data
}

// CPUPayload returns a small CPU profile; payloads with different n differ.
func CPUPayload(n int) []byte {
	return []byte(fmt.Sprintf(`{
  "head": {"id": 1, "functionName": "(root)", "hitCount": 0, "children": [
    {"id": 2, "functionName": "main", "url": "app.js", "lineNumber": %d, "hitCount": %d, "children": []}
  ]},
  "startTime": 0,
  "endTime": 1,
  "samples": [2],
  "timestamps": [0]
}`, n, n+1))
}

// AllocationPayload returns a small allocation profile; payloads with different n differ.
func AllocationPayload(n int) []byte {
	return []byte(fmt.Sprintf(`{
  "strings": ["", "foo", "app.js"],
  "trace_function_infos": [1, 1, 2],
  "trace_tree": [0, 0, 0, 0, [1, 1, %d, %d, []]]
}`, n, 16*n))
}

func genServiceName() string {
	return fmt.Sprintf("test-service-%s", xid.New())
}
