package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/profefe/jsprof/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := log.New(zap.New(core))

	var gotID string
	h := LoggingHandler(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/0/version", nil))

	require.NotEmpty(t, gotID)
	assert.Equal(t, gotID, rec.Header().Get(headerRequestID))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, gotID, fields["rid"])
	assert.EqualValues(t, http.StatusTeapot, fields["code"])
	assert.EqualValues(t, 2, fields["size"])
}

func TestLoggingHandler_KeepsClientRequestID(t *testing.T) {
	var gotID string
	h := LoggingHandler(log.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "client-id")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "client-id", gotID)
}

func TestRecoveryHandler(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := log.New(zap.New(core))

	h := RecoveryHandler(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic serving request", logs.All()[0].Message)
}
