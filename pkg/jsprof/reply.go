package jsprof

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/profefe/jsprof/pkg/allocation"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNoResults = StatusError(http.StatusNoContent, "no results", nil)
	ErrNotFound  = StatusError(http.StatusNotFound, "nothing found", nil)
)

// jsonResponse is the envelope of every API reply.
type jsonResponse struct {
	Code  int         `json:"code"`
	Body  interface{} `json:"body,omitempty"`
	Error string      `json:"error,omitempty"`
}

func ReplyJSON(w http.ResponseWriter, v interface{}) {
	writeJSON(w, jsonResponse{
		Code: http.StatusOK,
		Body: v,
	})
}

// ReplyError replies with the status the error maps to. Errors of unknown kinds
// are reported as internal errors without exposing their text.
func ReplyError(w http.ResponseWriter, err error) {
	code, msg := errorStatus(err)
	writeJSON(w, jsonResponse{
		Code:  code,
		Error: msg,
	})
}

func errorStatus(err error) (code int, msg string) {
	var (
		statusErr  *statusError
		ingestErr  *profile.IngestionError
		typeErr    *ProfileTypeError
		unknownErr *allocation.UnknownNodeError
	)
	switch {
	case err == nil:
	case xerrors.As(err, &statusErr):
		return statusErr.code, statusErr.Error()
	case xerrors.Is(err, storage.ErrNotFound):
		return ErrNotFound.code, ErrNotFound.Error()
	case xerrors.As(err, &ingestErr):
		return http.StatusBadRequest, fmt.Sprintf("bad profile: %s", ingestErr)
	case xerrors.As(err, &typeErr):
		return http.StatusBadRequest, typeErr.Error()
	case xerrors.As(err, &unknownErr):
		return http.StatusNotFound, unknownErr.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeJSON encodes resp before writing the header, so an unencodable body turns
// into a 500 reply.
func writeJSON(w http.ResponseWriter, resp jsonResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"code":`+strconv.Itoa(http.StatusInternalServerError)+`,"error":`+strconv.Quote(err.Error())+`}`)
		return
	}
	w.WriteHeader(resp.Code)
	w.Write(data)
	io.WriteString(w, "\n")
}

func HandleErrorHTTP(logger *log.Logger, err error, w http.ResponseWriter, r *http.Request) {
	if err == nil {
		return
	}

	ReplyError(w, err)

	if origErr := xerrors.Unwrap(err); origErr != nil {
		err = origErr
	}
	if err != nil {
		logger.Errorw("request failed", "url", r.URL.String(), zap.Error(err))
	}
}

type statusError struct {
	code    int
	message string
	cause   error
}

func StatusError(code int, msg string, cause error) *statusError {
	return &statusError{
		code:    code,
		message: msg,
		cause:   cause,
	}
}

func (s statusError) Error() string {
	return s.message
}

func (s statusError) Unwrap() error {
	return s.cause
}
