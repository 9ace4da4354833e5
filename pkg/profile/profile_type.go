package profile

import (
	"fmt"
	"strings"
)

type ProfileType uint8

const (
	TypeUnknown ProfileType = iota
	TypeCPU
	TypeAllocation
)

func (ptype *ProfileType) FromString(s string) error {
	s = strings.TrimSpace(s)
	switch s {
	case "cpu", "cpuprofile":
		*ptype = TypeCPU
	case "allocation", "heap-allocation", "heaptimeline":
		*ptype = TypeAllocation
	default:
		*ptype = TypeUnknown
		return fmt.Errorf("unknown profile type %q", s)
	}
	return nil
}

func (ptype ProfileType) String() string {
	switch ptype {
	case TypeUnknown:
		return "unknown"
	case TypeCPU:
		return "cpu"
	case TypeAllocation:
		return "allocation"
	}
	return fmt.Sprintf("ProfileType(%d)", ptype)
}

func (ptype ProfileType) MarshalText() ([]byte, error) {
	return []byte(ptype.String()), nil
}

func (ptype *ProfileType) UnmarshalText(b []byte) error {
	return ptype.FromString(string(b))
}
