package jsprof

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFindProfileParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/0/profiles?service=svc&type=cpu&from=2020-01-02T03:04:05&to=2020-01-03T00:00:00&labels=b=2,a=1&limit=5", nil)

	var params storage.FindProfilesParams
	require.NoError(t, parseFindProfileParams(&params, req))

	assert.Equal(t, "svc", params.Service)
	assert.Equal(t, profile.TypeCPU, params.Type)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), params.CreatedAtMin)
	assert.Equal(t, time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), params.CreatedAtMax)
	assert.Equal(t, profile.Labels{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, params.Labels)
	assert.Equal(t, 5, params.Limit)
}

func TestParseFindProfileParams_BadRequest(t *testing.T) {
	urls := []string{
		"/api/0/profiles?from=2020-01-02T03:04:05",
		"/api/0/profiles?service=svc",
		"/api/0/profiles?service=svc&from=yesterday",
		"/api/0/profiles?service=svc&from=2020-01-02T03:04:05&to=2020-01-01T00:00:00",
		"/api/0/profiles?service=svc&from=2020-01-02T03:04:05&type=heap",
		"/api/0/profiles?service=svc&from=2020-01-02T03:04:05&limit=many",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			var params storage.FindProfilesParams
			err := parseFindProfileParams(&params, httptest.NewRequest(http.MethodGet, u, nil))

			var statusErr *statusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, http.StatusBadRequest, statusErr.code)
		})
	}
}

func TestParseWriteProfileParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/0/profiles?service=svc&type=heaptimeline&created_at=2020-01-02T03:04:05", nil)

	var params storage.WriteProfileParams
	require.NoError(t, parseWriteProfileParams(&params, req))

	assert.Equal(t, "svc", params.Service)
	assert.Equal(t, profile.TypeAllocation, params.Type)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), params.CreatedAt)
}

func TestParseFramesWindow(t *testing.T) {
	win, err := parseFramesWindow(httptest.NewRequest(http.MethodGet, "/frames", nil))
	require.NoError(t, err)
	assert.Equal(t, framesWindow{}, win)

	win, err = parseFramesWindow(httptest.NewRequest(http.MethodGet, "/frames?from=1.5&to=20", nil))
	require.NoError(t, err)
	assert.Equal(t, framesWindow{from: 1.5, to: 20}, win)

	win, err = parseFramesWindow(httptest.NewRequest(http.MethodGet, "/frames?from=100", nil))
	require.NoError(t, err)
	assert.Equal(t, framesWindow{from: 100}, win)

	for _, u := range []string{"/frames?from=x", "/frames?to=x", "/frames?from=10&to=5", "/frames?to=NaN", "/frames?from=-Inf", "/frames?to=%2BInf"} {
		_, err := parseFramesWindow(httptest.NewRequest(http.MethodGet, u, nil))
		assert.Error(t, err, u)
	}
}
