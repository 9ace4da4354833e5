package allocation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	valid := []struct {
		in   interface{}
		want int64
	}{
		{float64(42), 42},
		{float64(-1), -1},
		{int(7), 7},
		{int32(8), 8},
		{int64(9), 9},
		{uint32(10), 10},
		{json.Number("11"), 11},
		{float64(-1 << 63), math.MinInt64},
	}
	for _, tc := range valid {
		got, err := toInt64(tc.in)
		require.NoError(t, err, "%#v", tc.in)
		assert.Equal(t, tc.want, got)
	}

	invalid := []interface{}{
		1.5,
		math.NaN(),
		math.Inf(1),
		1e300,
		-1e300,
		float64(1 << 63),
		"1",
		nil,
		[]interface{}{},
	}
	for _, in := range invalid {
		_, err := toInt64(in)
		assert.Error(t, err, "%#v", in)
	}
}

func TestTraceNodeLayout(t *testing.T) {
	l, err := newTraceNodeLayout(nil)
	require.NoError(t, err)
	assert.Equal(t, traceNodeLayout{stride: 5, id: 0, functionID: 1, count: 2, size: 3, children: 4}, l)

	l, err = newTraceNodeLayout([]string{"children", "size", "count", "function_info_index", "id", "extra"})
	require.NoError(t, err)
	assert.Equal(t, traceNodeLayout{stride: 6, id: 4, functionID: 3, count: 2, size: 1, children: 0}, l)

	_, err = newTraceNodeLayout([]string{"id", "function_id"})
	assert.Error(t, err)
}

func TestFunctionRecords(t *testing.T) {
	l, err := newFunctionInfoLayout([]string{"function_id", "name", "script_name", "line"})
	require.NoError(t, err)
	assert.Equal(t, -1, l.scriptID)
	assert.Equal(t, -1, l.column)

	records, err := newFunctionRecords(l, []int64{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)

	var got [][4]int64
	for records.Next() {
		got = append(got, [4]int64{records.FunctionID(), records.Name(), records.ScriptName(), records.Line()})
		assert.Equal(t, int64(0), records.ScriptID())
		assert.Equal(t, int64(0), records.Column())
	}
	assert.Equal(t, [][4]int64{{1, 2, 3, 4}, {5, 6, 7, 8}}, got)

	_, err = newFunctionRecords(l, []int64{1, 2, 3})
	assert.Error(t, err)
}

func TestTraceRecords_Children(t *testing.T) {
	l, err := newTraceNodeLayout(nil)
	require.NoError(t, err)

	records, err := newTraceRecords(l, traceNode(1, 1, 0, 0, traceNode(2, 1, 1, 1), traceNode(3, 1, 2, 2)))
	require.NoError(t, err)
	require.True(t, records.Next())

	children, err := records.Children()
	require.NoError(t, err)
	assert.Equal(t, 2, children.Len())

	var ids []int64
	for children.Next() {
		id, err := children.ID()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{2, 3}, ids)
	assert.False(t, records.Next())
}
