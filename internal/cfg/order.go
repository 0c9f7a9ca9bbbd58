package cfg

// computeOrder marks reachable blocks and records reverse post-order from
// the entry. Successors are visited last-first so that a then-branch or loop
// body precedes what follows it in the resulting order.
func (g *Graph) computeOrder() {
	g.Reachable = make([]bool, len(g.Blocks))
	post := make([]BlockID, 0, len(g.Blocks))

	type frame struct {
		id   BlockID
		next int
	}
	stack := []frame{{id: g.Entry}}
	g.Reachable[g.Entry] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := g.Blocks[top.id].Successors()
		if top.next < len(succs) {
			s := succs[len(succs)-1-top.next]
			top.next++
			if !g.Reachable[s] {
				g.Reachable[s] = true
				stack = append(stack, frame{id: s})
			}
			continue
		}
		post = append(post, top.id)
		stack = stack[:len(stack)-1]
	}

	g.RPO = make([]BlockID, len(post))
	for i, id := range post {
		g.RPO[len(post)-1-i] = id
	}
}

// ReachablePreds returns the reachable predecessors of id.
func (g *Graph) ReachablePreds(id BlockID) []BlockID {
	preds := g.Blocks[id].Preds
	out := make([]BlockID, 0, len(preds))
	for _, p := range preds {
		if g.Reachable[p] {
			out = append(out, p)
		}
	}
	return out
}
