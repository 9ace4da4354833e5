package cpuprofile

// Node is a call tree node. Times are in microseconds and derived from hit counts.
type Node struct {
	ID           int64
	FunctionName string
	ScriptID     string
	URL          string
	LineNumber   int
	ColumnNumber int
	HitCount     int64

	SelfTime  float64
	TotalTime float64

	// Depth is the distance from the first level below the head; the head itself is -1.
	Depth int

	index    int
	parent   int
	children []int
}

// IsHead reports whether the node is the root of the call tree.
func (n *Node) IsHead() bool {
	return n.parent < 0
}
