// Package graph models the node graph submitted to the generation server.
//
// A Graph maps node ids to nodes. Every node input is either a Literal
// parameter or a Ref to an output slot of another node in the same graph.
// One node is designated terminal; its outputs are the artifact of interest.
package graph

import (
	"sort"
	"strconv"
)

// Input is a node parameter: either a Literal or a Ref.
type Input interface {
	isInput()
}

// Literal is a plain parameter value (string, number, bool).
type Literal struct {
	Value any
}

// Ref points at output slot Slot of node Node.
type Ref struct {
	Node string
	Slot int
}

func (Literal) isInput() {}
func (Ref) isInput()     {}

// L is shorthand for Literal{Value: v}.
func L(v any) Literal { return Literal{Value: v} }

// R is shorthand for Ref{Node: node, Slot: slot}.
func R(node string, slot int) Ref { return Ref{Node: node, Slot: slot} }

// Node is one step of the pipeline.
type Node struct {
	Kind   string
	Inputs map[string]Input
}

// Graph is a job description keyed by node id.
type Graph struct {
	Nodes    map[string]Node
	Terminal string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]Node)}
}

// Add inserts or replaces the node with the given id.
func (g *Graph) Add(id, kind string, inputs map[string]Input) {
	if g.Nodes == nil {
		g.Nodes = make(map[string]Node)
	}
	if inputs == nil {
		inputs = make(map[string]Input)
	}
	g.Nodes[id] = Node{Kind: kind, Inputs: inputs}
}

// SetInput overwrites a single input of an existing node.
func (g *Graph) SetInput(id, name string, in Input) error {
	n, ok := g.Nodes[id]
	if !ok {
		return invalidf("set input %q: unknown node %q", name, id)
	}
	if n.Inputs == nil {
		n.Inputs = make(map[string]Input)
	}
	n.Inputs[name] = in
	g.Nodes[id] = n
	return nil
}

// IDs returns node ids in a stable order: numeric ids first by value, then
// the rest lexically.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	return ids
}

// Deps returns the distinct node ids referenced by node id, sorted.
func (g *Graph) Deps(id string) []string {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, in := range n.Inputs {
		ref, ok := in.(Ref)
		if !ok {
			continue
		}
		if _, dup := seen[ref.Node]; dup {
			continue
		}
		seen[ref.Node] = struct{}{}
		out = append(out, ref.Node)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i], out[j]) })
	return out
}

// Reaches reports whether from transitively depends on to.
func (g *Graph) Reaches(from, to string) bool {
	visited := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		stack = append(stack, g.Deps(cur)...)
	}
	return false
}

// Clone returns a copy that shares no maps with g.
func (g *Graph) Clone() *Graph {
	out := &Graph{Nodes: make(map[string]Node, len(g.Nodes)), Terminal: g.Terminal}
	for id, n := range g.Nodes {
		inputs := make(map[string]Input, len(n.Inputs))
		for k, v := range n.Inputs {
			inputs[k] = v
		}
		out.Nodes[id] = Node{Kind: n.Kind, Inputs: inputs}
	}
	return out
}

func lessID(a, b string) bool {
	ai, aok := atoi(a)
	bi, bok := atoi(b)
	switch {
	case aok && bok:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aok:
		return true
	case bok:
		return false
	}
	return a < b
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
