package middleware

import (
	"net/http"

	"github.com/profefe/jsprof/pkg/log"
)

// RecoveryHandler logs a panic of the handler and replies with 500 if nothing was
// written yet.
func RecoveryHandler(logger *log.Logger, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic serving request", "rid", RequestIDFromContext(req.Context()), "uri", req.RequestURI, "panic", err)
				if !resp.wroteHeader {
					http.Error(resp, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
		}()
		handler.ServeHTTP(resp, req)
	})
}
