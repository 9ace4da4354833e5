package jsprof

import (
	"io"

	"github.com/profefe/jsprof/pkg/allocation"
	"github.com/profefe/jsprof/pkg/cpuprofile"
	"github.com/profefe/jsprof/pkg/payload"
	"github.com/profefe/jsprof/pkg/profile"
	"golang.org/x/xerrors"
)

// ProfileModel is a stored profile together with the model built from its payload.
// Exactly one of CPU and Allocation is set, depending on Meta.Type.
type ProfileModel struct {
	Meta       profile.Meta
	CPU        *cpuprofile.Model
	Allocation *allocation.Model
}

// BuildProfileModel decodes the payload of the given type and builds its model.
// Payloads that fail to decode are reported as *profile.IngestionError.
func BuildProfileModel(ptyp profile.ProfileType, r io.Reader) (*ProfileModel, error) {
	pm := &ProfileModel{
		Meta: profile.Meta{Type: ptyp},
	}

	switch ptyp {
	case profile.TypeCPU:
		p, err := payload.DecodeCPUProfile(r)
		if err != nil {
			return nil, asIngestionError("cpu", err)
		}
		pm.CPU, err = cpuprofile.New(p)
		if err != nil {
			return nil, err
		}
	case profile.TypeAllocation:
		p, err := payload.DecodeAllocationProfile(r)
		if err != nil {
			return nil, asIngestionError("allocation", err)
		}
		pm.Allocation, err = allocation.New(p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, xerrors.Errorf("unsupported profile type %v", ptyp)
	}

	return pm, nil
}

func asIngestionError(kind string, err error) error {
	var ierr *profile.IngestionError
	if xerrors.As(err, &ierr) {
		return err
	}
	return &profile.IngestionError{Kind: kind, Err: err}
}
