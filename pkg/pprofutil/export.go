package pprofutil

import (
	"math"

	pprofProfile "github.com/google/pprof/profile"
	"github.com/profefe/jsprof/pkg/allocation"
	"github.com/profefe/jsprof/pkg/cpuprofile"
	"github.com/profefe/jsprof/pkg/profile"
)

// CPUProfileToPprof converts the model's call tree into a pprof profile with one sample
// per node that was hit. Sample values are the hit count and the self time.
func CPUProfileToPprof(m *cpuprofile.Model) (*pprofProfile.Profile, error) {
	pb := NewProfileBuilder(profile.TypeCPU)
	pb.SetPeriod(int64(math.Round(m.SamplingInterval())))
	pb.SetTime(int64(m.StartTime()*1e3), int64((m.EndTime()-m.StartTime())*1e3))

	locs := make(map[*cpuprofile.Node]*pprofProfile.Location)
	err := m.Walk(func(n *cpuprofile.Node) error {
		if n.IsHead() {
			return nil
		}

		fn := pb.Function(functionName(n.FunctionName), n.URL, lineNumber(int64(n.LineNumber)))
		loc := &pprofProfile.Location{
			Line: []pprofProfile.Line{{Function: fn, Line: fn.StartLine}},
		}
		pb.AddLocation(loc)
		locs[n] = loc

		if n.HitCount == 0 {
			return nil
		}

		var stack []*pprofProfile.Location
		for p := n; !p.IsHead(); p = m.Parent(p) {
			stack = append(stack, locs[p])
		}
		s := &pprofProfile.Sample{
			Location: stack,
			Value:    []int64{n.HitCount, int64(math.Round(n.SelfTime))},
		}
		sampleAddNumLabel(s, "node_id", n.ID)
		pb.AddSample(s)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return pb.Build()
}

// AllocationProfileToPprof converts the model's forward trace tree into a pprof profile
// with one sample per trace node that allocated.
func AllocationProfileToPprof(m *allocation.Model) (*pprofProfile.Profile, error) {
	pb := NewProfileBuilder(profile.TypeAllocation)

	root := m.Root()
	locs := make(map[*allocation.TraceNode]*pprofProfile.Location)
	for _, n := range m.Nodes() {
		if n == root {
			continue
		}

		fi := n.Function
		fn := pb.Function(functionName(fi.FunctionName), fi.ScriptName, lineNumber(fi.Line))
		loc := &pprofProfile.Location{
			Line: []pprofProfile.Line{{Function: fn, Line: fn.StartLine}},
		}
		pb.AddLocation(loc)
		locs[n] = loc

		if n.Count == 0 {
			continue
		}

		var stack []*pprofProfile.Location
		for p := n; p != root; p = m.Parent(p) {
			stack = append(stack, locs[p])
		}
		s := &pprofProfile.Sample{
			Location: stack,
			Value:    []int64{n.Count, n.Size},
		}
		sampleAddLabel(s, "script", fi.ScriptName)
		sampleAddNumLabel(s, "trace_node_id", n.ID)
		pb.AddSample(s)
	}

	return pb.Build()
}
