package jsprof

import (
	"net/http"

	"github.com/profefe/jsprof/version"
)

func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	ReplyJSON(w, version.Details())
}
