package allocation

import (
	"fmt"
	"sync"
)

// FunctionInfo identifies a function site and aggregates the allocations of the trace
// nodes that bottom out in it.
type FunctionInfo struct {
	FunctionName string
	ScriptName   string
	ScriptID     int64
	Line         int64
	Column       int64

	TotalCount int64
	TotalSize  int64

	nodes     []TraceNode // forward tree arena, shared with the model
	traceTops []int

	backTraceOnce sync.Once
	backTraceTree *BackTraceNode
}

func newFunctionInfo(functionName, scriptName string) *FunctionInfo {
	return &FunctionInfo{
		FunctionName: functionName,
		ScriptName:   scriptName,
	}
}

// addTraceTopNode attaches a forward tree node (by its arena index) to the function.
// Nodes with no allocations of their own are not trace tops.
func (fi *FunctionInfo) addTraceTopNode(idx int, node *TraceNode) {
	if node.Count == 0 {
		return
	}
	fi.traceTops = append(fi.traceTops, idx)
	fi.TotalCount += node.Count
	fi.TotalSize += node.Size
}

// TraceTops returns the forward tree nodes attributed to the function.
func (fi *FunctionInfo) TraceTops() []*TraceNode {
	tops := make([]*TraceNode, len(fi.traceTops))
	for i, idx := range fi.traceTops {
		tops[i] = &fi.nodes[idx]
	}
	return tops
}

// TracesWithThisTop returns the callers tree of the function, building it on first use.
// It returns nil when no allocation bottoms out in the function.
func (fi *FunctionInfo) TracesWithThisTop() *BackTraceNode {
	if len(fi.traceTops) == 0 {
		return nil
	}
	fi.backTraceOnce.Do(fi.buildBackTraceTree)
	return fi.backTraceTree
}

// hasCallers reports whether the callers tree would have any caller, without building it.
func (fi *FunctionInfo) hasCallers() bool {
	for _, idx := range fi.traceTops {
		if fi.callerOf(idx) >= 0 {
			return true
		}
	}
	return false
}

// callerOf returns the arena index of the node's caller, or -1 when its parent is the
// synthetic tree root, which is not a caller.
func (fi *FunctionInfo) callerOf(idx int) int {
	parent := fi.nodes[idx].parent
	if parent < 0 || fi.nodes[parent].parent < 0 {
		return -1
	}
	return parent
}

func (fi *FunctionInfo) buildBackTraceTree() {
	root := newBackTraceNode(fi.nodes[fi.traceTops[0]].Function)
	for _, top := range fi.traceTops {
		node := &fi.nodes[top]
		if node.Function != fi {
			panic(fmt.Sprintf("allocation: trace top node %d belongs to %q, not %q", node.ID, node.Function.FunctionName, fi.FunctionName))
		}

		count, size := node.Count, node.Size
		bt := root
		idx := top
		for {
			bt.Count += count
			bt.Size += size
			idx = fi.callerOf(idx)
			if idx < 0 {
				break
			}
			bt = bt.addCaller(fi.nodes[idx].Function)
		}
	}
	fi.backTraceTree = root
}
