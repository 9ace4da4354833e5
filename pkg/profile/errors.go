package profile

import (
	"fmt"
)

// IngestionError reports a malformed profile payload. Model construction is aborted
// when it is returned; no partially built model is ever handed out.
type IngestionError struct {
	Kind string
	Err  error
}

func Ingestionf(kind, format string, args ...interface{}) *IngestionError {
	return &IngestionError{
		Kind: kind,
		Err:  fmt.Errorf(format, args...),
	}
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("malformed %s profile: %v", e.Kind, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
