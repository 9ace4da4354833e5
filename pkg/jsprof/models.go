package jsprof

import (
	"time"

	"github.com/profefe/jsprof/pkg/cpuprofile"
	"github.com/profefe/jsprof/pkg/profile"
)

// Profile is the JSON representation of a profile returned with API response.
type Profile struct {
	ProfileID profile.ID     `json:"id"`
	Type      string         `json:"type"`
	Service   string         `json:"service"`
	Labels    profile.Labels `json:"labels,omitempty"`
	Size      int64          `json:"size,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

func ProfileFromProfileMeta(meta profile.Meta) Profile {
	return Profile{
		ProfileID: meta.ProfileID,
		Type:      meta.Type.String(),
		Service:   meta.Service,
		Labels:    meta.Labels,
		Size:      meta.Size,
		CreatedAt: meta.CreatedAt.Truncate(time.Second),
	}
}

// Frame is a closed call frame of a CPU profile. Times are in microseconds.
type Frame struct {
	Depth        int     `json:"depth"`
	NodeID       int64   `json:"nodeId"`
	FunctionName string  `json:"functionName"`
	URL          string  `json:"url,omitempty"`
	LineNumber   int     `json:"lineNumber"`
	StartTime    float64 `json:"startTime"`
	Duration     float64 `json:"duration"`
	SelfTime     float64 `json:"selfTime"`
}

func frameFromNode(depth int, n *cpuprofile.Node, startTime, duration, selfTime float64) Frame {
	return Frame{
		Depth:        depth,
		NodeID:       n.ID,
		FunctionName: n.FunctionName,
		URL:          n.URL,
		LineNumber:   n.LineNumber,
		StartTime:    startTime,
		Duration:     duration,
		SelfTime:     selfTime,
	}
}

// TreeNode is the JSON representation of a CPU profile call tree.
type TreeNode struct {
	ID           int64       `json:"id"`
	FunctionName string      `json:"functionName"`
	URL          string      `json:"url,omitempty"`
	LineNumber   int         `json:"lineNumber"`
	HitCount     int64       `json:"hitCount"`
	SelfTime     float64     `json:"selfTime"`
	TotalTime    float64     `json:"totalTime"`
	Children     []*TreeNode `json:"children,omitempty"`
}

// CPUTree is the call tree together with the profile-wide timing.
type CPUTree struct {
	StartTime        float64   `json:"startTime"`
	EndTime          float64   `json:"endTime"`
	SamplingInterval float64   `json:"samplingInterval"`
	MaxDepth         int       `json:"maxDepth"`
	Head             *TreeNode `json:"head"`
}

// NewCPUTree converts the model's tree. Nodes are visited in pre-order, so every
// parent is converted before its children.
func NewCPUTree(m *cpuprofile.Model) CPUTree {
	converted := make(map[*cpuprofile.Node]*TreeNode)
	m.Walk(func(n *cpuprofile.Node) error {
		tn := &TreeNode{
			ID:           n.ID,
			FunctionName: n.FunctionName,
			URL:          n.URL,
			LineNumber:   n.LineNumber,
			HitCount:     n.HitCount,
			SelfTime:     n.SelfTime,
			TotalTime:    n.TotalTime,
		}
		converted[n] = tn
		if parent := m.Parent(n); parent != nil {
			ptn := converted[parent]
			ptn.Children = append(ptn.Children, tn)
		}
		return nil
	})

	return CPUTree{
		StartTime:        m.StartTime(),
		EndTime:          m.EndTime(),
		SamplingInterval: m.SamplingInterval(),
		MaxDepth:         m.MaxDepth(),
		Head:             converted[m.Head()],
	}
}
