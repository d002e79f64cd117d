package flowgraph

import (
	"fmt"
	"strings"
)

type ProblemKind string

const (
	ProblemDangling   ProblemKind = "dangling_connection"
	ProblemStartCount ProblemKind = "start_count"
	ProblemBranch     ProblemKind = "invalid_branch"
)

type Problem struct {
	Kind    ProblemKind
	Message string
}

// ValidationError lists every structural problem found in a graph.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Message)
	}
	return "invalid flow graph: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Has(kind ProblemKind) bool {
	for _, p := range e.Problems {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// Validate checks the rules a graph must satisfy to be stored:
// every connection names existing nodes, there is exactly one start node
// and condition nodes branch only through distinct true/false ports.
func (g *Graph) Validate() error {
	var problems []Problem

	for _, c := range g.connections {
		if !g.HasNode(c.Source) {
			problems = append(problems, Problem{ProblemDangling, fmt.Sprintf("connection %s has unknown source %q", c.ID, c.Source)})
		}
		if !g.HasNode(c.Target) {
			problems = append(problems, Problem{ProblemDangling, fmt.Sprintf("connection %s has unknown target %q", c.ID, c.Target)})
		}
	}

	if n := g.countType(NodeStart); n != 1 {
		problems = append(problems, Problem{ProblemStartCount, fmt.Sprintf("flow must have exactly one start node, found %d", n)})
	}

	for _, n := range g.nodes {
		if n.Type != NodeCondition {
			for _, c := range g.Outgoing(n.ID) {
				if c.Condition == ConditionTrue || c.Condition == ConditionFalse {
					problems = append(problems, Problem{ProblemBranch, fmt.Sprintf("connection %s uses a %s port on %s node %s", c.ID, c.Condition, n.Type, n.ID)})
				}
			}
			continue
		}
		seen := map[ConditionType]bool{}
		for _, c := range g.Outgoing(n.ID) {
			if c.Condition != ConditionTrue && c.Condition != ConditionFalse {
				problems = append(problems, Problem{ProblemBranch, fmt.Sprintf("condition node %s has a %s connection", n.ID, c.Condition)})
				continue
			}
			if seen[c.Condition] {
				problems = append(problems, Problem{ProblemBranch, fmt.Sprintf("condition node %s has two %s branches", n.ID, c.Condition)})
			}
			seen[c.Condition] = true
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Lint reports shapes that store fine but probably misbehave at runtime.
func (g *Graph) Lint() []string {
	var warnings []string
	for _, n := range g.nodes {
		out := g.Outgoing(n.ID)
		switch n.Type {
		case NodeCondition:
			if len(out) < 2 {
				warnings = append(warnings, fmt.Sprintf("condition node %s has %d of 2 branches connected", n.ID, len(out)))
			}
		default:
			always := 0
			for _, c := range out {
				if c.Condition == ConditionAlways {
					always++
				}
			}
			if always > 1 {
				warnings = append(warnings, fmt.Sprintf("node %s has %d unconditional outgoing connections", n.ID, always))
			}
		}
		if q, ok := n.Config.(QuestionConfig); ok && strings.TrimSpace(q.VariableName) == "" {
			warnings = append(warnings, fmt.Sprintf("question node %s has no variable name", n.ID))
		}
	}
	return warnings
}
