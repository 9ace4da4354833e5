package profile

import (
	"sort"
	"strings"
)

type Label struct {
	Key, Value string
}

type Labels []Label

func (p Labels) Len() int           { return len(p) }
func (p Labels) Less(i, j int) bool { return p[i].Key < p[j].Key }
func (p Labels) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// FromString parses comma-separated "key=value" pairs. Pairs with an empty key are skipped.
func (p *Labels) FromString(s string) error {
	if s == "" {
		return nil
	}

	var labels Labels
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		var val string
		if len(kv) == 2 {
			val = strings.TrimSpace(kv[1])
		}
		labels = append(labels, Label{key, val})
	}
	sort.Sort(labels)

	*p = labels
	return nil
}

func (p Labels) String() string {
	var sb strings.Builder
	for i, l := range p {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(l.Key)
		sb.WriteByte('=')
		sb.WriteString(l.Value)
	}
	return sb.String()
}
