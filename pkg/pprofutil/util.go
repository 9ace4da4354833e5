package pprofutil

import pprofProfile "github.com/google/pprof/profile"

func sampleAddLabel(s *pprofProfile.Sample, key, value string) {
	if value == "" {
		return
	}
	if s.Label == nil {
		s.Label = make(map[string][]string)
	}
	s.Label[key] = append(s.Label[key], value)
}

func sampleAddNumLabel(s *pprofProfile.Sample, key string, value int64) {
	if s.NumLabel == nil {
		s.NumLabel = make(map[string][]int64)
	}
	s.NumLabel[key] = append(s.NumLabel[key], value)
}

// pprof lines are 1-based, inspector positions are 0-based.
func lineNumber(n int64) int64 {
	return n + 1
}

func functionName(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}
