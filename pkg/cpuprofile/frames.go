package cpuprofile

import (
	"math"
	"sort"
)

// OpenFrameFunc is called when a frame starts at depth.
type OpenFrameFunc func(depth int, node *Node, startTime float64)

// CloseFrameFunc is called when a frame opened at startTime ends. selfTime is the part of
// duration not covered by deeper frames.
type CloseFrameFunc func(depth int, node *Node, startTime, duration, selfTime float64)

type openFrame struct {
	node      int
	startTime float64
	selfTime  float64
}

// ForEachFrame replays the samples with timestamps in [startTime, stopTime) as a sequence
// of nested frames, as a flame chart draws them. Frames at depth 0 are children of the
// head; the head is never reported. A stopTime that is not positive (NaN included)
// means the window is unbounded.
//
// Every opened frame is closed, innermost first, once the sample stream moves out of it or
// the window ends. Garbage collector samples don't open frames: their time is added to
// the frames open at that moment.
//
// Callbacks run synchronously; a callback may panic to abort the traversal.
func (m *Model) ForEachFrame(onOpen OpenFrameFunc, onClose CloseFrameFunc, startTime, stopTime float64) {
	if len(m.samples) == 0 {
		return
	}
	if !(stopTime > 0) {
		stopTime = math.Inf(1)
	}

	samples := m.samples
	timestamps := m.timestamps

	start := lowerBound(timestamps[:len(samples)], startTime)
	stack := make([]openFrame, 0, m.maxDepth+1)
	path := make([]int, 0, m.maxDepth+1)

	closeFrames := func(keep int, closeTime float64) {
		for depth := len(stack) - 1; depth >= keep; depth-- {
			f := stack[depth]
			if onClose != nil {
				onClose(depth, &m.nodes[f.node], f.startTime, closeTime-f.startTime, f.selfTime)
			}
		}
		stack = stack[:keep]
	}

	i := start
	for ; i < len(samples); i++ {
		sampleTime := timestamps[i]
		if sampleTime >= stopTime {
			break
		}
		duration := math.Min(timestamps[i+1], stopTime) - sampleTime
		idx := samples[i]

		if idx != m.gcNode && (len(stack) == 0 || stack[len(stack)-1].node != idx) {
			// find the deepest frame of the sample's stack that is already open
			keep := 0
			n := idx
			path = path[:0]
			for m.nodes[n].parent != noNode {
				depth := m.nodes[n].Depth
				if depth < len(stack) && stack[depth].node == n {
					keep = depth + 1
					break
				}
				path = append(path, n)
				n = m.nodes[n].parent
			}

			closeFrames(keep, sampleTime)

			for j := len(path) - 1; j >= 0; j-- {
				node := path[j]
				if onOpen != nil {
					onOpen(len(stack), &m.nodes[node], sampleTime)
				}
				stack = append(stack, openFrame{node: node, startTime: sampleTime})
			}
		}

		if len(stack) > 0 {
			stack[len(stack)-1].selfTime += duration
		}
	}

	endTime := stopTime
	if i < len(timestamps) && timestamps[i] < endTime {
		endTime = timestamps[i]
	}
	closeFrames(0, endTime)
}

// lowerBound returns the index of the first value that is not less than v.
func lowerBound(values []float64, v float64) int {
	return sort.Search(len(values), func(i int) bool {
		return values[i] >= v
	})
}
