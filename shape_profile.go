package kestrel

import (
	"io"
	"sort"
	"strconv"

	"github.com/google/pprof/profile"
)

// Profile returns the shape graph as a pprof profile. Every shape is a sample
// whose stack is the chain of transitions from the root; the values are the
// number of objects that moved into the shape and its property count.
//
// The result can be inspected with "go tool pprof -traces" or rendered as a
// flame graph, where the width of a frame is the number of objects that took
// that transition path.
func (g *ShapeGraph) Profile() *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "objects", Unit: "count"},
			{Type: "properties", Unit: "count"},
		},
		PeriodType: &profile.ValueType{Type: "shapes", Unit: "count"},
		Period:     1,
	}
	var stack []*profile.Location

	var visit func(s *Shape)
	visit = func(s *Shape) {
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       s.edge.String(),
			SystemName: s.edge.String(),
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)

		stack = append(stack, loc)
		sample := &profile.Sample{
			Location: make([]*profile.Location, len(stack)),
			Value:    []int64{int64(s.uses), int64(s.size)},
			Label:    map[string][]string{"shape": {strconv.FormatUint(uint64(s.id), 10)}},
		}
		// leaf first
		for i, l := range stack {
			sample.Location[len(stack)-1-i] = l
		}
		p.Sample = append(p.Sample, sample)

		for _, next := range s.children() {
			visit(next)
		}
		stack = stack[:len(stack)-1]
	}
	visit(g.root)
	return p
}

// WriteProfile writes Profile in the gzipped pprof wire format.
func (g *ShapeGraph) WriteProfile(w io.Writer) error {
	return g.Profile().Write(w)
}

// children returns the memoized successors ordered by creation.
func (s *Shape) children() []*Shape {
	res := make([]*Shape, 0, len(s.transitions))
	for _, next := range s.transitions {
		res = append(res, next)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].id < res[j].id })
	return res
}
