package allocation

// TraceNode is a position in the forward allocation trace tree.
type TraceNode struct {
	ID       int64
	Function *FunctionInfo
	Count    int64
	Size     int64

	parent   int
	children []int
}

// BackTraceNode is a position in a function's callers tree: the function that called the
// one below it, with the allocations attributed through that call path.
type BackTraceNode struct {
	Function *FunctionInfo
	Count    int64
	Size     int64

	callers []*BackTraceNode
}

func newBackTraceNode(fi *FunctionInfo) *BackTraceNode {
	return &BackTraceNode{Function: fi}
}

func (n *BackTraceNode) Callers() []*BackTraceNode {
	return n.callers
}

func (n *BackTraceNode) HasCallers() bool {
	return len(n.callers) > 0
}

// addCaller returns the caller node for fi, creating it when missing. Callers are matched
// by identity with a linear scan.
func (n *BackTraceNode) addCaller(fi *FunctionInfo) *BackTraceNode {
	for _, caller := range n.callers {
		if caller.Function == fi {
			return caller
		}
	}
	caller := newBackTraceNode(fi)
	n.callers = append(n.callers, caller)
	return caller
}
