package cpuprofile

import (
	"math"

	"github.com/profefe/jsprof/pkg/payload"
	"github.com/profefe/jsprof/pkg/profile"
)

// Names of the synthetic nodes the sampler reports for non-JS activity.
const (
	GCNodeName      = "(garbage collector)"
	ProgramNodeName = "(program)"
	IdleNodeName    = "(idle)"
)

const noNode = -1

func ingestionErrorf(format string, args ...interface{}) error {
	return profile.Ingestionf("cpu", format, args...)
}

// Model is the CPU profile model. It is immutable once New returns and safe for
// concurrent use.
type Model struct {
	nodes    []Node
	idToNode map[int64]int
	maxDepth int

	startTime        float64
	endTime          float64
	samplingInterval float64

	// samples holds node indexes; timestamps has one trailing entry past the last sample.
	samples    []int
	timestamps []float64

	gcNode      int
	programNode int
	idleNode    int
}

// New builds the model from a decoded CPU profile. Profile bounds are converted from
// seconds to microseconds. A malformed payload results in a *profile.IngestionError.
func New(p *payload.CPUProfile) (*Model, error) {
	if p.Head == nil {
		return nil, ingestionErrorf("profile has no head node")
	}
	if !isTime(p.StartTime) || !isTime(p.EndTime) {
		return nil, ingestionErrorf("invalid profile bounds [%v, %v]", p.StartTime, p.EndTime)
	}
	if p.EndTime < p.StartTime {
		return nil, ingestionErrorf("profile ends before it starts: [%v, %v]", p.StartTime, p.EndTime)
	}

	m := &Model{
		startTime:   p.StartTime * 1e6,
		endTime:     p.EndTime * 1e6,
		maxDepth:    -1,
		gcNode:      noNode,
		programNode: noNode,
		idleNode:    noNode,
	}
	if err := m.buildTree(p.Head); err != nil {
		return nil, err
	}

	if len(p.Samples) > 0 {
		if err := m.buildSamples(p.Samples); err != nil {
			return nil, err
		}
		if err := m.normalizeTimestamps(p.Timestamps); err != nil {
			return nil, err
		}
		m.findSentinels()
		m.fixMissingSamples()
	}

	m.calculateTimes()

	return m, nil
}

func isTime(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

type pendingNode struct {
	node   *payload.CPUProfileNode
	parent int
}

// buildTree flattens the payload tree into the arena in pre-order, linking parents on
// the way down. The walk keeps its own stack so deep trees don't grow the goroutine stack.
func (m *Model) buildTree(head *payload.CPUProfileNode) error {
	m.idToNode = make(map[int64]int)
	seen := make(map[*payload.CPUProfileNode]bool)

	stack := []pendingNode{{node: head, parent: noNode}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pn := top.node
		if pn == nil {
			return ingestionErrorf("nil child node")
		}
		if seen[pn] {
			return ingestionErrorf("node %d is reachable twice", pn.ID)
		}
		seen[pn] = true

		if _, ok := m.idToNode[pn.ID]; ok {
			return ingestionErrorf("duplicate node id %d", pn.ID)
		}
		if pn.HitCount < 0 {
			return ingestionErrorf("node %d has negative hit count %d", pn.ID, pn.HitCount)
		}

		idx := len(m.nodes)
		depth := -1
		if top.parent != noNode {
			depth = m.nodes[top.parent].Depth + 1
			m.nodes[top.parent].children = append(m.nodes[top.parent].children, idx)
		}
		if depth > m.maxDepth {
			m.maxDepth = depth
		}
		m.nodes = append(m.nodes, Node{
			ID:           pn.ID,
			FunctionName: pn.FunctionName,
			ScriptID:     pn.ScriptID,
			URL:          pn.URL,
			LineNumber:   pn.LineNumber,
			ColumnNumber: pn.ColumnNumber,
			HitCount:     pn.HitCount,
			Depth:        depth,
			index:        idx,
			parent:       top.parent,
		})
		m.idToNode[pn.ID] = idx

		for i := len(pn.Children) - 1; i >= 0; i-- {
			stack = append(stack, pendingNode{node: pn.Children[i], parent: idx})
		}
	}
	return nil
}

func (m *Model) buildSamples(ids []int64) error {
	m.samples = make([]int, len(ids))
	for i, id := range ids {
		idx, ok := m.idToNode[id]
		if !ok {
			return ingestionErrorf("sample %d references unknown node id %d", i, id)
		}
		m.samples[i] = idx
	}
	return nil
}

// normalizeTimestamps validates the sample timestamps and appends a synthetic trailing one,
// so the last sample lasts as long as an average sample. Profiles without timestamps get
// them spread evenly over the profile bounds.
func (m *Model) normalizeTimestamps(timestamps []float64) error {
	n := len(m.samples)

	if len(timestamps) == 0 {
		m.timestamps = make([]float64, n+1)
		interval := (m.endTime - m.startTime) / float64(n)
		for i := range m.timestamps {
			m.timestamps[i] = m.startTime + float64(i)*interval
		}
		m.timestamps[n] = m.endTime
		return nil
	}

	if len(timestamps) != n {
		return ingestionErrorf("got %d timestamps for %d samples", len(timestamps), n)
	}
	for i, ts := range timestamps {
		if !isTime(ts) {
			return ingestionErrorf("invalid timestamp %v at sample %d", ts, i)
		}
		if i > 0 && ts < timestamps[i-1] {
			return ingestionErrorf("timestamp %v at sample %d is before the previous one", ts, i)
		}
	}

	m.timestamps = make([]float64, n+1)
	copy(m.timestamps, timestamps)

	first, last := timestamps[0], timestamps[n-1]
	var gap float64
	if n > 1 {
		gap = (last - first) / float64(n-1)
	}
	m.timestamps[n] = last + gap

	m.startTime = m.timestamps[0]
	m.endTime = m.timestamps[n]

	return nil
}

// findSentinels picks the first child of the head carrying each sentinel name.
func (m *Model) findSentinels() {
	for _, idx := range m.nodes[0].children {
		switch name := m.nodes[idx].FunctionName; {
		case name == GCNodeName && m.gcNode == noNode:
			m.gcNode = idx
		case name == ProgramNodeName && m.programNode == noNode:
			m.programNode = idx
		case name == IdleNodeName && m.idleNode == noNode:
			m.idleNode = idx
		}
		if m.gcNode != noNode && m.programNode != noNode && m.idleNode != noNode {
			break
		}
	}
}

// fixMissingSamples is a best-effort repair of "(program)" samples the sampler emits when
// it fails to resolve a JS stack. A lone program sample between two JS samples that share
// the same outermost frame is replaced by the preceding sample. Neighbours are read from
// the unrepaired stream, which makes a second pass a no-op.
func (m *Model) fixMissingSamples() {
	samples := m.samples
	if m.programNode == noNode || len(samples) < 3 {
		return
	}

	prev, node := samples[0], samples[1]
	for i := 1; i < len(samples)-1; i++ {
		next := samples[i+1]
		if node == m.programNode &&
			!m.isSystemNode(prev) &&
			!m.isSystemNode(next) &&
			m.bottomNode(prev) == m.bottomNode(next) {
			samples[i] = prev
		}
		prev, node = node, next
	}
}

func (m *Model) isSystemNode(idx int) bool {
	return idx == m.programNode || idx == m.gcNode || idx == m.idleNode
}

// bottomNode returns the outermost frame of the node's stack, i.e. its ancestor right
// below the head.
func (m *Model) bottomNode(idx int) int {
	if m.nodes[idx].parent == noNode {
		return idx
	}
	for m.nodes[m.nodes[idx].parent].parent != noNode {
		idx = m.nodes[idx].parent
	}
	return idx
}

// calculateTimes derives self and total times from hit counts. The arena is in pre-order,
// so a reverse scan visits every child before its parent.
func (m *Model) calculateTimes() {
	totalHits := make([]int64, len(m.nodes))
	for i := len(m.nodes) - 1; i >= 0; i-- {
		totalHits[i] += m.nodes[i].HitCount
		if parent := m.nodes[i].parent; parent != noNode {
			totalHits[parent] += totalHits[i]
		}
	}

	if totalHits[0] > 0 {
		m.samplingInterval = (m.endTime - m.startTime) / float64(totalHits[0])
	}
	for i := range m.nodes {
		m.nodes[i].SelfTime = float64(m.nodes[i].HitCount) * m.samplingInterval
		m.nodes[i].TotalTime = float64(totalHits[i]) * m.samplingInterval
	}
}

// Head returns the root of the call tree.
func (m *Model) Head() *Node {
	return &m.nodes[0]
}

// Node returns the node with the given profile id.
func (m *Model) Node(id int64) (*Node, bool) {
	idx, ok := m.idToNode[id]
	if !ok {
		return nil, false
	}
	return &m.nodes[idx], true
}

func (m *Model) Parent(n *Node) *Node {
	if n.parent == noNode {
		return nil
	}
	return &m.nodes[n.parent]
}

func (m *Model) Children(n *Node) []*Node {
	children := make([]*Node, len(n.children))
	for i, idx := range n.children {
		children[i] = &m.nodes[idx]
	}
	return children
}

// Walk calls fn for every node in pre-order, stopping at the first error.
func (m *Model) Walk(fn func(n *Node) error) error {
	for i := range m.nodes {
		if err := fn(&m.nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// StartTime returns the profile start in microseconds.
func (m *Model) StartTime() float64 { return m.startTime }

// EndTime returns the profile end in microseconds.
func (m *Model) EndTime() float64 { return m.endTime }

func (m *Model) SamplingInterval() float64 { return m.samplingInterval }

// MaxDepth returns the depth of the deepest node.
func (m *Model) MaxDepth() int { return m.maxDepth }

// Samples returns the node id of every sample, after repair.
func (m *Model) Samples() []int64 {
	ids := make([]int64, len(m.samples))
	for i, idx := range m.samples {
		ids[i] = m.nodes[idx].ID
	}
	return ids
}

// Timestamps returns the sample timestamps including the synthetic trailing one.
func (m *Model) Timestamps() []float64 {
	return append([]float64(nil), m.timestamps...)
}

func (m *Model) GCNode() *Node      { return m.sentinel(m.gcNode) }
func (m *Model) ProgramNode() *Node { return m.sentinel(m.programNode) }
func (m *Model) IdleNode() *Node    { return m.sentinel(m.idleNode) }

func (m *Model) sentinel(idx int) *Node {
	if idx == noNode {
		return nil
	}
	return &m.nodes[idx]
}
