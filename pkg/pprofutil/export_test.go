package pprofutil

import (
	"bytes"
	"testing"

	pprofProfile "github.com/google/pprof/profile"
	"github.com/profefe/jsprof/pkg/allocation"
	"github.com/profefe/jsprof/pkg/cpuprofile"
	"github.com/profefe/jsprof/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cpuNode(id int64, name string, line int, hitCount int64, children ...*payload.CPUProfileNode) *payload.CPUProfileNode {
	return &payload.CPUProfileNode{
		ID:           id,
		FunctionName: name,
		URL:          "app.js",
		LineNumber:   line,
		HitCount:     hitCount,
		Children:     children,
	}
}

func roundTrip(t *testing.T, prof *pprofProfile.Profile) *pprofProfile.Profile {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, prof.Write(&buf))

	got, err := pprofProfile.Parse(&buf)
	require.NoError(t, err)
	return got
}

func TestCPUProfileToPprof(t *testing.T) {
	m, err := cpuprofile.New(&payload.CPUProfile{
		Head: cpuNode(1, "(root)", 0, 0,
			cpuNode(2, "main", 0, 1,
				cpuNode(3, "", 9, 3),
				cpuNode(4, "work", 19, 0,
					cpuNode(5, "", 9, 6),
				),
			),
		),
		StartTime: 1,
		EndTime:   2,
	})
	require.NoError(t, err)

	prof, err := CPUProfileToPprof(m)
	require.NoError(t, err)

	prof = roundTrip(t, prof)
	assert.Equal(t, "microseconds", prof.PeriodType.Unit)
	assert.Equal(t, int64(100000), prof.Period)
	assert.Equal(t, int64(1e9), prof.TimeNanos)
	assert.Equal(t, int64(1e9), prof.DurationNanos)

	// nodes 3 and 5 share the anonymous function
	assert.Len(t, prof.Function, 3)
	assert.Len(t, prof.Location, 4)

	require.Len(t, prof.Sample, 3)

	var hits, cpu int64
	for _, s := range prof.Sample {
		hits += s.Value[0]
		cpu += s.Value[1]
	}
	assert.Equal(t, int64(10), hits)
	assert.Equal(t, int64(1e6), cpu)

	deepest := prof.Sample[2]
	assert.Equal(t, []int64{5}, deepest.NumLabel["node_id"])
	require.Len(t, deepest.Location, 3)
	assert.Equal(t, "(anonymous)", deepest.Location[0].Line[0].Function.Name)
	assert.Equal(t, int64(10), deepest.Location[0].Line[0].Line)
	assert.Equal(t, "work", deepest.Location[1].Line[0].Function.Name)
	assert.Equal(t, "main", deepest.Location[2].Line[0].Function.Name)
}

func TestAllocationProfileToPprof(t *testing.T) {
	m, err := allocation.New(&payload.AllocationProfile{
		Strings:            []string{"", "main", "foo", "app.js"},
		TraceFunctionInfos: []int64{1, 1, 3, 2, 2, 3},
		TraceTree: []interface{}{
			0.0, 0.0, 0.0, 0.0, []interface{}{
				1.0, 1.0, 0.0, 0.0, []interface{}{
					2.0, 2.0, 4.0, 64.0, []interface{}{},
				},
				3.0, 2.0, 1.0, 32.0, []interface{}{},
			},
		},
	})
	require.NoError(t, err)

	prof, err := AllocationProfileToPprof(m)
	require.NoError(t, err)

	prof = roundTrip(t, prof)
	assert.Equal(t, "alloc_objects", prof.SampleType[0].Type)
	assert.Len(t, prof.Function, 2)
	assert.Len(t, prof.Location, 3)

	require.Len(t, prof.Sample, 2)

	s := prof.Sample[0]
	assert.Equal(t, []int64{4, 64}, s.Value)
	assert.Equal(t, []string{"app.js"}, s.Label["script"])
	assert.Equal(t, []int64{2}, s.NumLabel["trace_node_id"])
	require.Len(t, s.Location, 2)
	assert.Equal(t, "foo", s.Location[0].Line[0].Function.Name)
	assert.Equal(t, "main", s.Location[1].Line[0].Function.Name)

	s = prof.Sample[1]
	assert.Equal(t, []int64{1, 32}, s.Value)
	require.Len(t, s.Location, 1)
}
