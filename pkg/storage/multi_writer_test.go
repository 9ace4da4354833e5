package storage

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	"github.com/profefe/jsprof/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestMultiWriter_WriteProfile(t *testing.T) {
	data := "the data"
	pid := profile.NewID()
	createdAt := time.Now().UTC()

	sw1 := &StubWriter{
		WriteProfileFunc: func(ctx context.Context, params *WriteProfileParams, r io.Reader) (profile.Meta, error) {
			d, _ := ioutil.ReadAll(r)
			require.Equal(t, data, string(d))
			assert.Nil(t, params.ExternalID)
			return profile.Meta{ProfileID: pid, Service: params.Service, CreatedAt: createdAt}, nil
		},
	}

	var forwarded int
	sw2 := &StubWriter{
		WriteProfileFunc: func(ctx context.Context, params *WriteProfileParams, r io.Reader) (profile.Meta, error) {
			forwarded++
			d, _ := ioutil.ReadAll(r)
			require.Equal(t, data, string(d))
			assert.Equal(t, pid, params.ExternalID)
			assert.Equal(t, createdAt, params.CreatedAt)
			assert.Equal(t, "svc", params.Service)
			return profile.Meta{}, nil
		},
	}

	params := &WriteProfileParams{Service: "svc"}
	mw := NewMultiWriter(sw1, sw2, sw2)
	meta, err := mw.WriteProfile(context.Background(), params, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, pid, meta.ProfileID)
	assert.Equal(t, 2, forwarded)

	// the caller's params are left intact
	assert.Nil(t, params.ExternalID)
}

func TestMultiWriter_WriteProfile_firstError(t *testing.T) {
	theErr := errors.New("the error")

	sw1 := &StubWriter{
		WriteProfileFunc: func(ctx context.Context, _ *WriteProfileParams, _ io.Reader) (profile.Meta, error) {
			return profile.Meta{}, theErr
		},
	}
	sw2 := &StubWriter{
		WriteProfileFunc: func(ctx context.Context, _ *WriteProfileParams, _ io.Reader) (profile.Meta, error) {
			t.Fatal("must not be called")
			return profile.Meta{}, nil
		},
	}

	mw := NewMultiWriter(sw1, sw2)
	_, err := mw.WriteProfile(context.Background(), &WriteProfileParams{}, strings.NewReader("test data"))
	require.Equal(t, theErr, err)
}

func TestMultiWriter_WriteProfile_forwardError(t *testing.T) {
	theErr := errors.New("the error")

	sw1 := &StubWriter{
		WriteProfileFunc: func(ctx context.Context, _ *WriteProfileParams, _ io.Reader) (profile.Meta, error) {
			return profile.Meta{ProfileID: profile.NewID()}, nil
		},
	}
	sw2 := &StubWriter{
		WriteProfileFunc: func(ctx context.Context, _ *WriteProfileParams, _ io.Reader) (profile.Meta, error) {
			return profile.Meta{}, theErr
		},
	}

	mw := NewMultiWriter(sw1, sw2)
	_, err := mw.WriteProfile(context.Background(), &WriteProfileParams{}, strings.NewReader("test data"))
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, theErr))
}

func TestWriteProfileParams_NewMeta(t *testing.T) {
	pid := profile.NewID()
	createdAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))

	params := &WriteProfileParams{
		ExternalID: pid,
		Service:    "svc",
		Type:       profile.TypeCPU,
		Labels:     profile.Labels{{Key: "k", Value: "v"}},
		CreatedAt:  createdAt,
	}
	require.NoError(t, params.Validate())

	meta := params.NewMeta(42)
	assert.Equal(t, pid, meta.ProfileID)
	assert.Equal(t, "svc", meta.Service)
	assert.Equal(t, profile.TypeCPU, meta.Type)
	assert.Equal(t, int64(42), meta.Size)
	assert.True(t, createdAt.Equal(meta.CreatedAt))
	assert.Equal(t, time.UTC, meta.CreatedAt.Location())

	meta = (&WriteProfileParams{Service: "svc", Type: profile.TypeCPU}).NewMeta(0)
	assert.NotNil(t, meta.ProfileID)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestFindProfilesParams_Validate(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		params  *FindProfilesParams
		wantErr bool
	}{
		{"nil", nil, true},
		{"no service", &FindProfilesParams{CreatedAtMin: now}, true},
		{"no min", &FindProfilesParams{Service: "svc"}, true},
		{"min after max", &FindProfilesParams{Service: "svc", CreatedAtMin: now, CreatedAtMax: now.Add(-time.Second)}, true},
		{"negative limit", &FindProfilesParams{Service: "svc", CreatedAtMin: now, Limit: -1}, true},
		{"open window", &FindProfilesParams{Service: "svc", CreatedAtMin: now}, false},
		{"closed window", &FindProfilesParams{Service: "svc", CreatedAtMin: now, CreatedAtMax: now, Type: profile.TypeCPU}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
