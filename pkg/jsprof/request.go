package jsprof

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"golang.org/x/xerrors"
)

func getProfileType(q url.Values) (ptype profile.ProfileType, err error) {
	if v := q.Get("type"); v != "" {
		if err := ptype.FromString(v); err != nil {
			return ptype, err
		}
		if ptype == profile.TypeUnknown {
			err = fmt.Errorf("bad profile type %v", ptype)
		}
	}
	return ptype, err
}

func getLabels(q url.Values) (labels profile.Labels, err error) {
	err = labels.FromString(q.Get("labels"))
	return labels, err
}

const timeFormat = "2006-01-02T15:04:05"

func parseTime(v string) (time.Time, error) {
	tm, err := time.Parse(timeFormat, v)
	if err != nil || tm.IsZero() {
		return time.Time{}, xerrors.Errorf("time in unsupported format %q", v)
	}
	return tm, nil
}

func parseWriteProfileParams(in *storage.WriteProfileParams, r *http.Request) error {
	if in == nil {
		return xerrors.New("parseWriteProfileParams: nil request receiver")
	}

	q := r.URL.Query()

	if v := q.Get("service"); v != "" {
		in.Service = v
	} else {
		return StatusError(http.StatusBadRequest, "bad request: missing service", nil)
	}

	if q.Get("type") == "" {
		return StatusError(http.StatusBadRequest, "bad request: missing profile type", nil)
	}
	if pt, err := getProfileType(q); err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad profile type %q: %s", q.Get("type"), err), nil)
	} else {
		in.Type = pt
	}

	if labels, err := getLabels(q); err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad labels %q: %s", q.Get("labels"), err), nil)
	} else {
		in.Labels = labels
	}

	if v := q.Get("created_at"); v != "" {
		tm, err := parseTime(v)
		if err != nil {
			return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad \"created_at\" timestamp %q: %s", v, err), nil)
		}
		in.CreatedAt = tm
	}

	if err := in.Validate(); err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: %s", err), err)
	}

	return nil
}

func parseFindProfileParams(in *storage.FindProfilesParams, r *http.Request) (err error) {
	if in == nil {
		return xerrors.New("parseFindProfileParams: nil request receiver")
	}

	q := r.URL.Query()

	if v := q.Get("service"); v != "" {
		in.Service = v
	} else {
		return StatusError(http.StatusBadRequest, "bad request: missing service", nil)
	}

	if pt, err := getProfileType(q); err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad profile type %q: %s", q.Get("type"), err), nil)
	} else {
		in.Type = pt
	}

	if v := q.Get("from"); v != "" {
		tm, err := parseTime(v)
		if err != nil {
			return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad \"from\" timestamp %q: %s", v, err), nil)
		}
		in.CreatedAtMin = tm
	}

	if v := q.Get("to"); v != "" {
		tm, err := parseTime(v)
		if err != nil {
			return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad \"to\" timestamp %q: %s", v, err), nil)
		}
		in.CreatedAtMax = tm
	}

	if labels, err := getLabels(q); err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad labels %q: %s", q.Get("labels"), err), nil)
	} else {
		in.Labels = labels
	}

	if v := q.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad limit %q: %s", v, err), nil)
		}
		in.Limit = l
	}

	if err := in.Validate(); err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: %s", err), err)
	}

	return nil
}

// framesWindow is the [from, to) time window, in microseconds, of a frames request.
// Zero to means the window is unbounded.
type framesWindow struct {
	from float64
	to   float64
}

func parseFramesWindow(r *http.Request) (framesWindow, error) {
	var (
		win framesWindow
		err error
	)

	q := r.URL.Query()
	if win.from, err = parseWindowBound(q.Get("from"), "from"); err != nil {
		return win, err
	}
	if win.to, err = parseWindowBound(q.Get("to"), "to"); err != nil {
		return win, err
	}
	if win.to > 0 && win.to < win.from {
		return win, StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: \"to\" %v before \"from\" %v", win.to, win.from), nil)
	}
	return win, nil
}

func parseWindowBound(v, name string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: bad %q %q: %s", name, v, err), nil)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, StatusError(http.StatusBadRequest, fmt.Sprintf("bad request: %q must be finite, got %q", name, v), nil)
	}
	return t, nil
}
