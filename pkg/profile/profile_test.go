package profile

import (
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestID_MarshalJSON(t *testing.T) {
	cases := []struct {
		pid ID
	}{
		{nil},
		{newTestXIDProfileID()},
		{TestID},
	}

	for _, tc := range cases {
		b, err := tc.pid.MarshalJSON()
		require.NoError(t, err)

		var gotPid ID
		err = gotPid.UnmarshalJSON(b)
		require.NoError(t, err)

		assert.Equal(t, tc.pid, gotPid)
	}
}

func TestIDFromString(t *testing.T) {
	cases := []struct {
		pid ID
	}{
		{TestID},
		{newTestXIDProfileID()},
	}

	for _, tc := range cases {
		gotPid, err := IDFromString(tc.pid.String())
		require.NoError(t, err)
		assert.Equal(t, tc.pid, gotPid)
	}

	_, err := IDFromString("not an id")
	require.Error(t, err)
}

func TestIngestionError(t *testing.T) {
	err := xerrors.Errorf("could not build model: %w", Ingestionf("cpu", "duplicate node id %d", 7))

	var ierr *IngestionError
	require.True(t, xerrors.As(err, &ierr))
	assert.Equal(t, "cpu", ierr.Kind)
	assert.EqualError(t, ierr, "malformed cpu profile: duplicate node id 7")
}

func newTestXIDProfileID() ID {
	return xid.New().Bytes()
}
