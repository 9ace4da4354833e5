package allocation

import (
	"fmt"
	"math"

	"github.com/profefe/jsprof/pkg/profile"
)

// Field names used by heap snapshots to describe the allocation trace records.
const (
	fieldFunctionID        = "function_id"
	fieldFunctionInfoIndex = "function_info_index"
	fieldName              = "name"
	fieldScriptName        = "script_name"
	fieldScriptID          = "script_id"
	fieldLine              = "line"
	fieldColumn            = "column"

	fieldID       = "id"
	fieldCount    = "count"
	fieldSize     = "size"
	fieldChildren = "children"
)

var (
	defaultFunctionInfoFields = []string{fieldFunctionID, fieldName, fieldScriptName}
	defaultTraceNodeFields    = []string{fieldID, fieldFunctionID, fieldCount, fieldSize, fieldChildren}
)

func ingestionErrorf(format string, args ...interface{}) error {
	return profile.Ingestionf("allocation", format, args...)
}

// functionInfoLayout holds the offsets of the fields inside one function info record.
// Optional fields are -1 when the record doesn't carry them.
type functionInfoLayout struct {
	stride     int
	functionID int
	name       int
	scriptName int
	scriptID   int
	line       int
	column     int
}

func newFunctionInfoLayout(fields []string) (functionInfoLayout, error) {
	if len(fields) == 0 {
		fields = defaultFunctionInfoFields
	}
	l := functionInfoLayout{
		stride:     len(fields),
		functionID: indexOf(fields, fieldFunctionID),
		name:       indexOf(fields, fieldName),
		scriptName: indexOf(fields, fieldScriptName),
		scriptID:   indexOf(fields, fieldScriptID),
		line:       indexOf(fields, fieldLine),
		column:     indexOf(fields, fieldColumn),
	}
	if l.functionID < 0 || l.name < 0 || l.scriptName < 0 {
		return l, ingestionErrorf("function info fields %v lack one of %v", fields, defaultFunctionInfoFields)
	}
	return l, nil
}

type traceNodeLayout struct {
	stride     int
	id         int
	functionID int
	count      int
	size       int
	children   int
}

func newTraceNodeLayout(fields []string) (traceNodeLayout, error) {
	if len(fields) == 0 {
		fields = defaultTraceNodeFields
	}
	l := traceNodeLayout{
		stride:     len(fields),
		id:         indexOf(fields, fieldID),
		functionID: indexOf(fields, fieldFunctionID),
		count:      indexOf(fields, fieldCount),
		size:       indexOf(fields, fieldSize),
		children:   indexOf(fields, fieldChildren),
	}
	if l.functionID < 0 {
		l.functionID = indexOf(fields, fieldFunctionInfoIndex)
	}
	if l.id < 0 || l.functionID < 0 || l.count < 0 || l.size < 0 || l.children < 0 {
		return l, ingestionErrorf("trace node fields %v lack one of %v", fields, defaultTraceNodeFields)
	}
	return l, nil
}

func indexOf(fields []string, name string) int {
	for i, f := range fields {
		if f == name {
			return i
		}
	}
	return -1
}

// functionRecords is a cursor over flat, fixed-stride function info records.
type functionRecords struct {
	layout functionInfoLayout
	raw    []int64
	off    int
}

func newFunctionRecords(layout functionInfoLayout, raw []int64) (*functionRecords, error) {
	if len(raw)%layout.stride != 0 {
		return nil, ingestionErrorf("function infos length %d is not a multiple of record size %d", len(raw), layout.stride)
	}
	return &functionRecords{
		layout: layout,
		raw:    raw,
		off:    -layout.stride,
	}, nil
}

// Next advances the cursor to the next record.
func (r *functionRecords) Next() bool {
	r.off += r.layout.stride
	return r.off+r.layout.stride <= len(r.raw)
}

func (r *functionRecords) FunctionID() int64 { return r.raw[r.off+r.layout.functionID] }
func (r *functionRecords) Name() int64       { return r.raw[r.off+r.layout.name] }
func (r *functionRecords) ScriptName() int64 { return r.raw[r.off+r.layout.scriptName] }
func (r *functionRecords) ScriptID() int64   { return r.optional(r.layout.scriptID) }
func (r *functionRecords) Line() int64       { return r.optional(r.layout.line) }
func (r *functionRecords) Column() int64     { return r.optional(r.layout.column) }

func (r *functionRecords) optional(field int) int64 {
	if field < 0 {
		return 0
	}
	return r.raw[r.off+field]
}

// traceRecords is a cursor over one level of the nested trace tree encoding, where every
// record's children field is itself a flat array of records.
type traceRecords struct {
	layout traceNodeLayout
	raw    []interface{}
	off    int
}

func newTraceRecords(layout traceNodeLayout, raw []interface{}) (*traceRecords, error) {
	if len(raw)%layout.stride != 0 {
		return nil, ingestionErrorf("trace node array length %d is not a multiple of record size %d", len(raw), layout.stride)
	}
	return &traceRecords{
		layout: layout,
		raw:    raw,
		off:    -layout.stride,
	}, nil
}

func (r *traceRecords) Next() bool {
	r.off += r.layout.stride
	return r.off+r.layout.stride <= len(r.raw)
}

// Len returns the number of records.
func (r *traceRecords) Len() int {
	return len(r.raw) / r.layout.stride
}

func (r *traceRecords) ID() (int64, error)         { return r.int(r.layout.id, fieldID) }
func (r *traceRecords) FunctionID() (int64, error) { return r.int(r.layout.functionID, fieldFunctionID) }
func (r *traceRecords) Count() (int64, error)      { return r.nonNegative(r.layout.count, fieldCount) }
func (r *traceRecords) Size() (int64, error)       { return r.nonNegative(r.layout.size, fieldSize) }

func (r *traceRecords) Children() (*traceRecords, error) {
	v := r.raw[r.off+r.layout.children]
	switch children := v.(type) {
	case []interface{}:
		return newTraceRecords(r.layout, children)
	case nil:
		return newTraceRecords(r.layout, nil)
	}
	return nil, ingestionErrorf("trace node children field is %T, not an array", v)
}

func (r *traceRecords) int(field int, name string) (int64, error) {
	n, err := toInt64(r.raw[r.off+field])
	if err != nil {
		return 0, ingestionErrorf("trace node field %q: %v", name, err)
	}
	return n, nil
}

func (r *traceRecords) nonNegative(field int, name string) (int64, error) {
	n, err := r.int(field, name)
	if err == nil && n < 0 {
		err = ingestionErrorf("trace node field %q is negative: %d", name, n)
	}
	return n, err
}

type int64er interface {
	Int64() (int64, error)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v is out of range", n)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case int64er:
		return n.Int64()
	}
	return 0, fmt.Errorf("value %v of type %T is not a number", v, v)
}
