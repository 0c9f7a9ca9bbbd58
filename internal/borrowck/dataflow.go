package borrowck

import (
	"context"
	"fmt"

	"brick/internal/cfg"
	"brick/internal/diag"
	"brick/internal/hir"
)

// DefaultMaxIterations bounds the fixed-point iteration when Options leave
// it unset.
const DefaultMaxIterations = 128

// solve iterates block transfer functions over reverse post-order until
// the block entry states stop changing. Diagnostics and drops are not
// produced here; finish replays the converged states once.
func (c *checker) solve(ctx context.Context) (int, error) {
	n := len(c.g.Blocks)
	c.in = make([]*flowState, n)
	c.out = make([]*flowState, n)
	c.in[c.g.Entry] = c.entryState()

	limit := c.opts.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return iter, err
		}
		changed := false
		for _, id := range c.g.RPO {
			if id != c.g.Entry {
				st := c.joinPreds(id)
				if st == nil {
					continue
				}
				if !st.equal(c.in[id]) {
					c.in[id] = st
					changed = true
				}
			}
			out := c.transferBlock(id, c.in[id].clone())
			if !out.equal(c.out[id]) {
				c.out[id] = out
				changed = true
			}
		}
		if !changed {
			return iter, nil
		}
		if iter >= limit {
			c.rep.Report(diag.BrkUnstableLoopOwnership, diag.SevError, c.fn.Span,
				fmt.Sprintf("ownership analysis of `%s` did not converge after %d iterations", c.fn.Name, iter), nil)
			return iter, nil
		}
	}
}

func (c *checker) entryState() *flowState {
	st := newFlowState(c.paths.Slots())
	for slot := range c.paths.Slots() {
		if c.paths.Local(slot).Param {
			st.declare(c.paths, slot, true, c.fn.Span)
		}
	}
	return st
}

// joinPreds merges the exit states of the reachable predecessors of id
// that have been visited so far.
func (c *checker) joinPreds(id cfg.BlockID) *flowState {
	var (
		states []*flowState
		back   []bool
	)
	for _, p := range c.g.ReachablePreds(id) {
		if c.out[p] == nil {
			continue
		}
		states = append(states, c.out[p])
		back = append(back, c.g.Blocks[p].BackEdge)
	}
	if len(states) == 0 {
		return nil
	}
	blk := c.g.Blocks[id]
	return join(c.paths, states, back, blk.LoopHeader, blk.Loop)
}

func (c *checker) transferBlock(id cfg.BlockID, st *flowState) *flowState {
	blk := c.g.Blocks[id]
	c.loop = blk.Loop
	for i := range blk.Ops {
		c.transferOp(st, &blk.Ops[i])
	}
	if blk.Pad && c.emit {
		c.conform(st, blk)
	}
	return st
}

// finish replays every reachable block once from the converged entry
// states, reporting diagnostics and recording drops.
func (c *checker) finish() {
	c.emit = true
	for _, id := range c.g.RPO {
		if c.in[id] == nil {
			continue
		}
		c.transferBlock(id, c.in[id].clone())
	}
	c.emit = false
}

// conform drops what the pad's edge still owns but the join at its target
// treats as moved, so every path into the join agrees on ownership.
func (c *checker) conform(st *flowState, pad *cfg.Block) {
	target := c.in[pad.Term.Target]
	if target == nil {
		return
	}
	for slot := range st.locals {
		if !st.locals[slot].live || !target.locals[slot].live {
			continue
		}
		for _, e := range target.locals[slot].moved {
			c.dropRemainder(st, e.path, hir.DropJoin, pad.Anchor)
		}
	}
}
