package pprofutil

import (
	pprofProfile "github.com/google/pprof/profile"
	"github.com/profefe/jsprof/pkg/profile"
	"golang.org/x/xerrors"
)

type functionKey struct {
	name      string
	filename  string
	startLine int64
}

// ProfileBuilder assembles a pprof profile of the given type. Locations and functions
// get sequential ids when added without one.
type ProfileBuilder struct {
	ptyp      profile.ProfileType
	prof      *pprofProfile.Profile
	functions map[functionKey]*pprofProfile.Function
}

func NewProfileBuilder(ptyp profile.ProfileType) *ProfileBuilder {
	return &ProfileBuilder{
		ptyp:      ptyp,
		prof:      &pprofProfile.Profile{},
		functions: make(map[functionKey]*pprofProfile.Function),
	}
}

func (pb *ProfileBuilder) IsEmpty() bool {
	return len(pb.prof.Sample) == 0
}

func (pb *ProfileBuilder) AddSample(s *pprofProfile.Sample) {
	pb.prof.Sample = append(pb.prof.Sample, s)
}

func (pb *ProfileBuilder) AddLocation(loc *pprofProfile.Location) {
	if loc.ID == 0 {
		loc.ID = nextID(len(pb.prof.Location))
	}
	pb.prof.Location = append(pb.prof.Location, loc)
}

func (pb *ProfileBuilder) AddFunction(fn *pprofProfile.Function) {
	if fn.ID == 0 {
		fn.ID = nextID(len(pb.prof.Function))
	}
	pb.prof.Function = append(pb.prof.Function, fn)
}

// Function returns the function with the given name, file and start line, adding it on
// first use.
func (pb *ProfileBuilder) Function(name, filename string, startLine int64) *pprofProfile.Function {
	key := functionKey{name, filename, startLine}
	if fn := pb.functions[key]; fn != nil {
		return fn
	}
	fn := &pprofProfile.Function{
		Name:       name,
		SystemName: name,
		Filename:   filename,
		StartLine:  startLine,
	}
	pb.AddFunction(fn)
	pb.functions[key] = fn
	return fn
}

// SetTime records when the profile was taken and for how long, in nanoseconds.
func (pb *ProfileBuilder) SetTime(timeNanos, durationNanos int64) {
	pb.prof.TimeNanos = timeNanos
	pb.prof.DurationNanos = durationNanos
}

func (pb *ProfileBuilder) SetPeriod(period int64) {
	pb.prof.Period = period
}

func (pb *ProfileBuilder) Build() (*pprofProfile.Profile, error) {
	switch pb.ptyp {
	case profile.TypeCPU:
		pb.buildCPU()
	case profile.TypeAllocation:
		pb.buildAllocation()
	default:
		return nil, xerrors.Errorf("could not build pprof profile of type %v", pb.ptyp)
	}

	if err := pb.prof.CheckValid(); err != nil {
		return nil, xerrors.Errorf("invalid pprof profile: %w", err)
	}
	return pb.prof, nil
}

func (pb *ProfileBuilder) buildCPU() {
	pb.prof.SampleType = []*pprofProfile.ValueType{
		{Type: "samples", Unit: "count"},
		{Type: "cpu", Unit: "microseconds"},
	}
	pb.prof.PeriodType = &pprofProfile.ValueType{
		Type: "cpu",
		Unit: "microseconds",
	}
}

func (pb *ProfileBuilder) buildAllocation() {
	pb.prof.SampleType = []*pprofProfile.ValueType{
		{Type: "alloc_objects", Unit: "count"},
		{Type: "alloc_space", Unit: "bytes"},
	}
	pb.prof.PeriodType = &pprofProfile.ValueType{
		Type: "space",
		Unit: "bytes",
	}
}

func nextID(n int) uint64 {
	return uint64(1 + n)
}
