package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileType_FromString(t *testing.T) {
	cases := []struct {
		in      string
		want    ProfileType
		wantErr bool
	}{
		{"cpu", TypeCPU, false},
		{" allocation ", TypeAllocation, false},
		{"heaptimeline", TypeAllocation, false},
		{"blah", TypeUnknown, true},
	}

	for _, tc := range cases {
		var ptype ProfileType
		err := ptype.FromString(tc.in)
		assert.Equal(t, tc.wantErr, err != nil, "FromString(%q)", tc.in)
		assert.Equal(t, tc.want, ptype, "FromString(%q)", tc.in)
	}
}

func TestProfileType_String(t *testing.T) {
	assert.Equal(t, "cpu", TypeCPU.String())
	assert.Equal(t, "allocation", TypeAllocation.String())
	assert.Equal(t, "ProfileType(42)", ProfileType(42).String())
}
