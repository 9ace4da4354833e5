package payload

import (
	"io"

	"golang.org/x/xerrors"
)

// AllocationProfile is the allocation-trace part of a heap snapshot: a string table, flat
// function info records and the nested, flat-encoded trace tree.
//
// FunctionInfoFields and TraceNodeFields name the record fields in order; when empty the
// default layouts (function_id, name, script_name) and (id, function_id, count, size,
// children) are assumed.
type AllocationProfile struct {
	Strings            []string
	FunctionInfoFields []string
	TraceNodeFields    []string
	TraceFunctionInfos []int64
	TraceTree          []interface{}
}

type rawAllocationProfile struct {
	Snapshot struct {
		Meta struct {
			TraceFunctionInfoFields []string `json:"trace_function_info_fields"`
			TraceNodeFields         []string `json:"trace_node_fields"`
		} `json:"meta"`
	} `json:"snapshot"`
	TraceFunctionInfos []int64       `json:"trace_function_infos"`
	TraceTree          []interface{} `json:"trace_tree"`
	Strings            []string      `json:"strings"`
}

// DecodeAllocationProfile decodes a heap snapshot document recorded with allocation tracking.
// Everything but the allocation trace sections is skipped.
func DecodeAllocationProfile(r io.Reader) (*AllocationProfile, error) {
	var raw rawAllocationProfile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, xerrors.Errorf("could not decode allocation profile: %w", err)
	}
	return &AllocationProfile{
		Strings:            raw.Strings,
		FunctionInfoFields: raw.Snapshot.Meta.TraceFunctionInfoFields,
		TraceNodeFields:    raw.Snapshot.Meta.TraceNodeFields,
		TraceFunctionInfos: raw.TraceFunctionInfos,
		TraceTree:          raw.TraceTree,
	}, nil
}
