package payload

import (
	"io"

	"github.com/profefe/jsprof/pkg/profile"
	"golang.org/x/xerrors"
)

// CPUProfile is a decoded CPU sampling profile in the tree shape: a head node, profile
// bounds in seconds, and the optional sample stream with timestamps in microseconds.
type CPUProfile struct {
	Head       *CPUProfileNode `json:"head"`
	StartTime  float64         `json:"startTime"`
	EndTime    float64         `json:"endTime"`
	Samples    []int64         `json:"samples,omitempty"`
	Timestamps []float64       `json:"timestamps,omitempty"`
}

type CPUProfileNode struct {
	ID           int64             `json:"id"`
	FunctionName string            `json:"functionName"`
	ScriptID     string            `json:"scriptId,omitempty"`
	URL          string            `json:"url,omitempty"`
	LineNumber   int               `json:"lineNumber,omitempty"`
	ColumnNumber int               `json:"columnNumber,omitempty"`
	HitCount     int64             `json:"hitCount"`
	Children     []*CPUProfileNode `json:"children,omitempty"`
}

type rawCPUProfile struct {
	Head       *rawTreeNode  `json:"head"`
	Nodes      []rawFlatNode `json:"nodes"`
	StartTime  float64       `json:"startTime"`
	EndTime    float64       `json:"endTime"`
	Samples    []int64       `json:"samples"`
	Timestamps []float64     `json:"timestamps"`
	TimeDeltas []float64     `json:"timeDeltas"`
}

type rawTreeNode struct {
	ID           int64          `json:"id"`
	FunctionName string         `json:"functionName"`
	ScriptID     flexString     `json:"scriptId"`
	URL          string         `json:"url"`
	LineNumber   int            `json:"lineNumber"`
	ColumnNumber int            `json:"columnNumber"`
	CallFrame    *rawCallFrame  `json:"callFrame"`
	HitCount     int64          `json:"hitCount"`
	Children     []*rawTreeNode `json:"children"`
}

type rawCallFrame struct {
	FunctionName string     `json:"functionName"`
	ScriptID     flexString `json:"scriptId"`
	URL          string     `json:"url"`
	LineNumber   int        `json:"lineNumber"`
	ColumnNumber int        `json:"columnNumber"`
}

type rawFlatNode struct {
	ID        int64        `json:"id"`
	CallFrame rawCallFrame `json:"callFrame"`
	HitCount  int64        `json:"hitCount"`
	Children  []int64      `json:"children"`
}

// DecodeCPUProfile decodes a CPU profile document. Both the legacy tree format (head,
// bounds in seconds, absolute timestamps) and the flat format (nodes, bounds in
// microseconds, timeDeltas) are accepted; the result is always in the tree shape.
func DecodeCPUProfile(r io.Reader) (*CPUProfile, error) {
	var raw rawCPUProfile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, xerrors.Errorf("could not decode cpu profile: %w", err)
	}

	switch {
	case raw.Head != nil:
		return &CPUProfile{
			Head:       convertTreeNode(raw.Head),
			StartTime:  raw.StartTime,
			EndTime:    raw.EndTime,
			Samples:    raw.Samples,
			Timestamps: raw.Timestamps,
		}, nil
	case len(raw.Nodes) > 0:
		return convertFlatProfile(&raw)
	}
	return nil, profile.Ingestionf("cpu", "profile has neither head nor nodes")
}

func convertTreeNode(raw *rawTreeNode) *CPUProfileNode {
	if raw == nil {
		return nil
	}
	node := &CPUProfileNode{
		ID:           raw.ID,
		FunctionName: raw.FunctionName,
		ScriptID:     string(raw.ScriptID),
		URL:          raw.URL,
		LineNumber:   raw.LineNumber,
		ColumnNumber: raw.ColumnNumber,
		HitCount:     raw.HitCount,
	}
	if cf := raw.CallFrame; cf != nil {
		node.FunctionName = cf.FunctionName
		node.ScriptID = string(cf.ScriptID)
		node.URL = cf.URL
		node.LineNumber = cf.LineNumber
		node.ColumnNumber = cf.ColumnNumber
	}
	if len(raw.Children) > 0 {
		node.Children = make([]*CPUProfileNode, 0, len(raw.Children))
		for _, child := range raw.Children {
			if child != nil {
				node.Children = append(node.Children, convertTreeNode(child))
			}
		}
	}
	return node
}

func convertFlatProfile(raw *rawCPUProfile) (*CPUProfile, error) {
	nodes := make(map[int64]*CPUProfileNode, len(raw.Nodes))
	for i := range raw.Nodes {
		rn := &raw.Nodes[i]
		if _, ok := nodes[rn.ID]; ok {
			return nil, profile.Ingestionf("cpu", "duplicate node id %d", rn.ID)
		}
		nodes[rn.ID] = &CPUProfileNode{
			ID:           rn.ID,
			FunctionName: rn.CallFrame.FunctionName,
			ScriptID:     string(rn.CallFrame.ScriptID),
			URL:          rn.CallFrame.URL,
			LineNumber:   rn.CallFrame.LineNumber,
			ColumnNumber: rn.CallFrame.ColumnNumber,
			HitCount:     rn.HitCount,
		}
	}

	hasParent := make(map[int64]bool, len(raw.Nodes))
	for i := range raw.Nodes {
		rn := &raw.Nodes[i]
		parent := nodes[rn.ID]
		for _, childID := range rn.Children {
			child, ok := nodes[childID]
			if !ok {
				return nil, profile.Ingestionf("cpu", "node %d references unknown child %d", rn.ID, childID)
			}
			if hasParent[childID] {
				return nil, profile.Ingestionf("cpu", "node %d has more than one parent", childID)
			}
			hasParent[childID] = true
			parent.Children = append(parent.Children, child)
		}
	}

	var head *CPUProfileNode
	for i := range raw.Nodes {
		if id := raw.Nodes[i].ID; !hasParent[id] {
			if head != nil {
				return nil, profile.Ingestionf("cpu", "more than one root node (%d, %d)", head.ID, id)
			}
			head = nodes[id]
		}
	}
	if head == nil {
		return nil, profile.Ingestionf("cpu", "no root node, node graph is cyclic")
	}
	// every node has at most one parent and there is exactly one root, so the graph is a tree
	// iff everything is reachable from the root
	if n := countReachable(head); n != len(nodes) {
		return nil, profile.Ingestionf("cpu", "node graph is cyclic: %d of %d nodes reachable from root", n, len(nodes))
	}

	if len(raw.Samples) > 0 && !hasHitCounts(raw.Nodes) {
		for _, id := range raw.Samples {
			if node, ok := nodes[id]; ok {
				node.HitCount++
			}
		}
	}

	p := &CPUProfile{
		Head:      head,
		StartTime: raw.StartTime / 1e6,
		EndTime:   raw.EndTime / 1e6,
		Samples:   raw.Samples,
	}

	if len(raw.TimeDeltas) > 0 {
		if len(raw.TimeDeltas) != len(raw.Samples) {
			return nil, profile.Ingestionf("cpu", "got %d time deltas for %d samples", len(raw.TimeDeltas), len(raw.Samples))
		}
		p.Timestamps = make([]float64, len(raw.TimeDeltas))
		ts := raw.StartTime
		for i, delta := range raw.TimeDeltas {
			ts += delta
			p.Timestamps[i] = ts
		}
	} else if len(raw.Timestamps) > 0 {
		p.Timestamps = raw.Timestamps
	}

	return p, nil
}

func countReachable(head *CPUProfileNode) int {
	n := 0
	stack := []*CPUProfileNode{head}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, node.Children...)
	}
	return n
}

func hasHitCounts(nodes []rawFlatNode) bool {
	for i := range nodes {
		if nodes[i].HitCount != 0 {
			return true
		}
	}
	return false
}
