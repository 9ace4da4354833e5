package allocation

import (
	"sort"
)

// SerializedNode is the display-ready projection of a trace top or a caller. ID is a
// handle that can be passed back to SerializeCallers.
type SerializedNode struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ScriptName  string `json:"scriptName"`
	Count       int64  `json:"count"`
	Size        int64  `json:"size"`
	HasChildren bool   `json:"hasChildren"`
}

// handle is what a serialized node id resolves to: a collapsed trace top whose callers
// tree is not resolved yet, or a callers tree node.
type handle struct {
	pending *FunctionInfo
	node    *BackTraceNode
}

// register stores h and returns its id. Ids start from 1 and are never reused.
func (m *Model) register(h handle) int {
	m.handles = append(m.handles, h)
	return len(m.handles)
}

// SerializeTraceTops returns one entry per function with allocations, sorted by size in
// descending order. The result is computed once and returned as is on subsequent calls;
// callers must not modify it.
func (m *Model) SerializeTraceTops() []SerializedNode {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.traceTopsDone {
		return m.traceTops
	}

	result := make([]SerializedNode, 0, len(m.functionIDs))
	for _, id := range m.functionIDs {
		fi := m.functions[id]
		if fi.TotalCount == 0 {
			continue
		}
		nodeID := m.register(handle{pending: fi})
		result = append(result, serializeNode(nodeID, fi, fi.TotalCount, fi.TotalSize, fi.hasCallers()))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Size > result[j].Size
	})

	m.traceTops = result
	m.traceTopsDone = true

	return result
}

// SerializeCallers returns the callers of the node behind nodeID, each under a new id.
// The first expansion of a trace top builds the function's callers tree.
func (m *Model) SerializeCallers(nodeID int) ([]SerializedNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nodeID < 1 || nodeID > len(m.handles) {
		return nil, &UnknownNodeError{ID: nodeID}
	}

	h := &m.handles[nodeID-1]
	node := h.node
	if node == nil {
		if h.pending == nil {
			return nil, &UnknownNodeError{ID: nodeID}
		}
		node = h.pending.TracesWithThisTop()
		if node == nil {
			return nil, &UnknownNodeError{ID: nodeID}
		}
		h.pending = nil
		h.node = node
	}

	callers := node.Callers()
	result := make([]SerializedNode, 0, len(callers))
	for _, caller := range callers {
		callerID := m.register(handle{node: caller})
		result = append(result, serializeNode(callerID, caller.Function, caller.Count, caller.Size, caller.HasCallers()))
	}
	return result, nil
}

func serializeNode(id int, fi *FunctionInfo, count, size int64, hasChildren bool) SerializedNode {
	return SerializedNode{
		ID:          id,
		Name:        fi.FunctionName,
		ScriptName:  fi.ScriptName,
		Count:       count,
		Size:        size,
		HasChildren: hasChildren,
	}
}
