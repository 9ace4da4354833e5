package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/profefe/jsprof/pkg/log"
)

const headerRequestID = "X-Request-Id"

// LoggingHandler logs every request, tagging it with a request id. The id is taken
// from the X-Request-Id header when the client sets one.
func LoggingHandler(logger *log.Logger, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts := time.Now().UTC()

		resp := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = nextRequestID()
			r.Header.Set(headerRequestID, id)
		}
		r = r.WithContext(ContextWithRequestID(r.Context(), id))
		w.Header().Set(headerRequestID, id)

		handler.ServeHTTP(resp, r)

		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}

		remoteAddr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			remoteAddr = r.RemoteAddr
		}

		logger.Infow(
			"request",
			"rid", id,
			"method", r.Method,
			"uri", r.RequestURI,
			"code", resp.statusCode,
			"size", resp.written,
			"host", host,
			"ip", remoteAddr,
			"rtime", time.Since(ts),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	written     int64
}

func (r *responseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.statusCode = statusCode
	r.wroteHeader = true
}

func (r *responseWriter) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}
