package version

import (
	"fmt"
	"runtime"
)

var (
	Version   string
	Commit    string
	BuildTime string
)

// BuildDetails is the JSON form of the version info served by the API.
type BuildDetails struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Details() BuildDetails {
	return BuildDetails{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns version details as pretty printed string.
func String() string {
	return fmt.Sprintf(
		"jsprof version %s, commit %s (%s), go version %s",
		Version,
		Commit,
		BuildTime,
		runtime.Version(),
	)
}
