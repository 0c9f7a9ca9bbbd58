package cfg

import (
	"fmt"
	"strings"
)

// Dump renders the graph for tracing and tests. Only reachable blocks are
// printed, in reverse post-order.
func (g *Graph) Dump() string {
	var sb strings.Builder
	for _, id := range g.RPO {
		blk := g.Blocks[id]
		fmt.Fprintf(&sb, "bb%d", id)
		switch {
		case blk.Pad:
			fmt.Fprintf(&sb, " pad(%s", blk.Anchor.Kind)
			if blk.BackEdge {
				sb.WriteString(", back")
			}
			sb.WriteString(")")
		case blk.LoopHeader:
			sb.WriteString(" header")
		}
		if blk.Loop != NoLoop {
			fmt.Fprintf(&sb, " loop%d", blk.Loop)
		}
		sb.WriteString(":\n")
		for _, op := range blk.Ops {
			fmt.Fprintf(&sb, "  %s", op.Kind)
			switch op.Kind {
			case OpStmt, OpReturnValue:
				fmt.Fprintf(&sb, " %s", op.Stmt.Kind)
			case OpScopeExit:
				fmt.Fprintf(&sb, " s%d", op.Scope)
			}
			sb.WriteString("\n")
		}
		switch blk.Term.Kind {
		case TermGoto:
			fmt.Fprintf(&sb, "  goto bb%d\n", blk.Term.Target)
		case TermBranch:
			fmt.Fprintf(&sb, "  branch bb%d bb%d\n", blk.Term.Then, blk.Term.Else)
		case TermReturn:
			sb.WriteString("  return\n")
		case TermExit:
			sb.WriteString("  exit\n")
		}
	}
	return sb.String()
}
