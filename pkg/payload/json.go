package payload

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// flexString accepts both JSON strings and numbers; older profiles encode script ids as numbers.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*s = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}
