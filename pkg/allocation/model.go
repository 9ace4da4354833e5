package allocation

import (
	"sort"
	"sync"

	"github.com/profefe/jsprof/pkg/payload"
)

const (
	rootFunctionID   = 0
	rootFunctionName = "(root)"
	rootScriptName   = "<unknown>"
)

// Model is the allocation profile model: a forward trace tree over function infos, with
// handle-based serialization of trace tops and their callers.
//
// A Model is safe for concurrent use.
type Model struct {
	strings     []string
	functions   map[int64]*FunctionInfo
	functionIDs []int64
	nodes       []TraceNode

	mu            sync.Mutex
	traceTops     []SerializedNode
	traceTopsDone bool
	handles       []handle
}

// New builds the model from a decoded allocation profile. A malformed payload results in
// a *profile.IngestionError and no model.
func New(p *payload.AllocationProfile) (*Model, error) {
	m := &Model{
		strings:   p.Strings,
		functions: make(map[int64]*FunctionInfo),
	}
	if err := m.buildFunctionInfos(p); err != nil {
		return nil, err
	}
	if err := m.buildTraceTree(p); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) buildFunctionInfos(p *payload.AllocationProfile) error {
	layout, err := newFunctionInfoLayout(p.FunctionInfoFields)
	if err != nil {
		return err
	}
	records, err := newFunctionRecords(layout, p.TraceFunctionInfos)
	if err != nil {
		return err
	}

	// id 0 is reserved for the synthetic root; a record may still override it
	m.functions[rootFunctionID] = newFunctionInfo(rootFunctionName, rootScriptName)

	seen := make(map[int64]bool)
	for records.Next() {
		id := records.FunctionID()
		if seen[id] {
			return ingestionErrorf("duplicate function id %d", id)
		}
		seen[id] = true

		name, err := m.string(records.Name())
		if err != nil {
			return err
		}
		scriptName, err := m.string(records.ScriptName())
		if err != nil {
			return err
		}
		fi := newFunctionInfo(name, scriptName)
		fi.ScriptID = records.ScriptID()
		fi.Line = records.Line()
		fi.Column = records.Column()
		m.functions[id] = fi
	}

	m.functionIDs = make([]int64, 0, len(m.functions))
	for id := range m.functions {
		m.functionIDs = append(m.functionIDs, id)
	}
	sort.Slice(m.functionIDs, func(i, j int) bool { return m.functionIDs[i] < m.functionIDs[j] })

	return nil
}

func (m *Model) string(idx int64) (string, error) {
	if idx < 0 || idx >= int64(len(m.strings)) {
		return "", ingestionErrorf("string index %d out of range [0, %d)", idx, len(m.strings))
	}
	return m.strings[idx], nil
}

func (m *Model) buildTraceTree(p *payload.AllocationProfile) error {
	layout, err := newTraceNodeLayout(p.TraceNodeFields)
	if err != nil {
		return err
	}
	records, err := newTraceRecords(layout, p.TraceTree)
	if err != nil {
		return err
	}
	if n := records.Len(); n != 1 {
		return ingestionErrorf("trace tree must have exactly one root, got %d", n)
	}
	records.Next()

	if _, err := m.traverseNode(records, -1); err != nil {
		return err
	}

	// the arena is complete, so function infos may now reference it
	for _, fi := range m.functions {
		fi.nodes = m.nodes
	}
	for idx := range m.nodes {
		node := &m.nodes[idx]
		node.Function.addTraceTopNode(idx, node)
	}
	return nil
}

func (m *Model) traverseNode(records *traceRecords, parent int) (int, error) {
	id, err := records.ID()
	if err != nil {
		return 0, err
	}
	functionID, err := records.FunctionID()
	if err != nil {
		return 0, err
	}
	fi, ok := m.functions[functionID]
	if !ok {
		return 0, ingestionErrorf("trace node %d references unknown function id %d", id, functionID)
	}
	count, err := records.Count()
	if err != nil {
		return 0, err
	}
	size, err := records.Size()
	if err != nil {
		return 0, err
	}
	children, err := records.Children()
	if err != nil {
		return 0, err
	}

	idx := len(m.nodes)
	m.nodes = append(m.nodes, TraceNode{
		ID:       id,
		Function: fi,
		Count:    count,
		Size:     size,
		parent:   parent,
	})

	if n := children.Len(); n > 0 {
		childIdxs := make([]int, 0, n)
		for children.Next() {
			childIdx, err := m.traverseNode(children, idx)
			if err != nil {
				return 0, err
			}
			childIdxs = append(childIdxs, childIdx)
		}
		m.nodes[idx].children = childIdxs
	}

	return idx, nil
}

// Root returns the synthetic root of the forward trace tree.
func (m *Model) Root() *TraceNode {
	return &m.nodes[0]
}

func (m *Model) Parent(n *TraceNode) *TraceNode {
	if n.parent < 0 {
		return nil
	}
	return &m.nodes[n.parent]
}

func (m *Model) Children(n *TraceNode) []*TraceNode {
	children := make([]*TraceNode, len(n.children))
	for i, idx := range n.children {
		children[i] = &m.nodes[idx]
	}
	return children
}

// Nodes returns every forward tree node in pre-order.
func (m *Model) Nodes() []*TraceNode {
	nodes := make([]*TraceNode, len(m.nodes))
	for i := range m.nodes {
		nodes[i] = &m.nodes[i]
	}
	return nodes
}

// FunctionInfos returns the function infos ordered by function id.
func (m *Model) FunctionInfos() []*FunctionInfo {
	infos := make([]*FunctionInfo, len(m.functionIDs))
	for i, id := range m.functionIDs {
		infos[i] = m.functions[id]
	}
	return infos
}

// FunctionInfo returns the function info for the function id.
func (m *Model) FunctionInfo(id int64) (*FunctionInfo, bool) {
	fi, ok := m.functions[id]
	return fi, ok
}
