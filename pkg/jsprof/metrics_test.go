package jsprof

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixAPIPathLabel(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/0/profiles", "/api/0/profiles"},
		{"/api/0/profiles/", "/api/0/profiles"},
		{"/api/0/services", "/api/0/services"},
		{"/api/0/profiles/bnqjj4ps5ac56hm3f7g0", "/api/0/profiles/__pid__"},
		{"/api/0/profiles/bnqjj4ps5ac56hm3f7g0/tracetops", "/api/0/profiles/__pid__/tracetops"},
		{"/api/0/profiles/bnqjj4ps5ac56hm3f7g0/callers/12", "/api/0/profiles/__pid__/callers/__node__"},
		{"/api/0/profiles/bnqjj4ps5ac56hm3f7g0/frames/", "/api/0/profiles/__pid__/frames"},
		{"/api/0/profiles/bnqjj4ps5ac56hm3f7g0/a/b/c", "/api/0/profiles/__pid__/a/__unknown__"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, fixAPIPathLabel(tc.path))
		})
	}
}
