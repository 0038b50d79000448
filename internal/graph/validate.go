package graph

// Validate checks that the terminal node exists, every Ref resolves to a
// node of the same graph and the graph has no cycles.
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return invalidf("graph has no nodes")
	}
	if g.Terminal == "" {
		return invalidf("no terminal node designated")
	}
	if _, ok := g.Nodes[g.Terminal]; !ok {
		return invalidf("terminal node %q not in graph", g.Terminal)
	}
	for _, id := range g.IDs() {
		n := g.Nodes[id]
		if n.Kind == "" {
			return invalidf("node %q has no kind", id)
		}
		for name, in := range n.Inputs {
			ref, ok := in.(Ref)
			if !ok {
				continue
			}
			if _, ok := g.Nodes[ref.Node]; !ok {
				return invalidf("node %q input %q references unknown node %q", id, name, ref.Node)
			}
			if ref.Slot < 0 {
				return invalidf("node %q input %q has negative slot %d", id, name, ref.Slot)
			}
		}
	}
	return g.validateAcyclic()
}

// TopoOrder returns node ids ordered so that every node comes after the nodes
// it references. Ties are broken by id order. Nodes on a cycle are omitted.
func (g *Graph) TopoOrder() []string {
	ids := g.IDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	indeg := make([]int, len(ids))
	outgoing := make([][]int, len(ids))
	for i, id := range ids {
		for _, dep := range g.Deps(id) {
			j, ok := index[dep]
			if !ok {
				continue
			}
			outgoing[j] = append(outgoing[j], i)
			indeg[i]++
		}
	}

	// ids are already sorted, so scanning for the lowest ready index keeps
	// the order deterministic without a heap; graphs here are tiny.
	done := make([]bool, len(ids))
	out := make([]string, 0, len(ids))
	for {
		next := -1
		for i := range ids {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return out
		}
		done[next] = true
		out = append(out, ids[next])
		for _, m := range outgoing[next] {
			indeg[m]--
		}
	}
}

func (g *Graph) validateAcyclic() error {
	if len(g.TopoOrder()) == len(g.Nodes) {
		return nil
	}
	return cycleError(g.findCycle())
}

// findCycle walks dependencies depth first and returns one cycle witness.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))
	parent := make(map[string]string, len(g.Nodes))

	var cycle []string
	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range g.Deps(u) {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != v && cur != ""; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, id := range g.IDs() {
		if color[id] == white && dfs(id) {
			break
		}
	}

	out := make([]string, len(cycle))
	for i := range cycle {
		out[i] = cycle[len(cycle)-1-i]
	}
	return out
}
