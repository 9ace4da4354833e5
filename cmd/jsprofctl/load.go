package main

import (
	"bytes"
	"io/ioutil"

	"github.com/profefe/jsprof/pkg/jsprof"
	"github.com/profefe/jsprof/pkg/profile"
	"golang.org/x/xerrors"
)

// loadProfile reads a profile file and builds its model. An empty ptype means the
// type is guessed from the payload.
func loadProfile(fileName, ptype string) (*jsprof.ProfileModel, []byte, error) {
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, nil, err
	}

	ptyp, err := profileType(ptype, data)
	if err != nil {
		return nil, nil, err
	}

	pm, err := jsprof.BuildProfileModel(ptyp, bytes.NewReader(data))
	if err != nil {
		return nil, nil, xerrors.Errorf("could not load %s: %w", fileName, err)
	}
	pm.Meta.Size = int64(len(data))
	return pm, data, nil
}

func profileType(ptype string, data []byte) (ptyp profile.ProfileType, err error) {
	if ptype != "" {
		err = ptyp.FromString(ptype)
		return ptyp, err
	}
	if bytes.Contains(data, []byte(`"trace_tree"`)) {
		return profile.TypeAllocation, nil
	}
	return profile.TypeCPU, nil
}
