package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cardflow/internal/engine"
	"github.com/roach88/cardflow/internal/ir"
)

// CascadeWarning reports automations whose actions produce changes that
// other automations (or themselves) trigger on.
//
// The reentrancy guard absorbs writes made during a cycle, so none of
// these cascades happen at runtime: an action's change is folded into the
// baseline and the downstream automation does not fire. The warnings tell
// authors that a chain they may expect will not run.
type CascadeWarning struct {
	Path    []string `json:"path"`    // ["auto-a", "auto-b"] or a loop ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" for loops, "info" for chains
}

// AnalyzeCascades performs static cascade analysis on automations.
//
// The algorithm:
//  1. For each action, enumerate the change events it can cause
//  2. Add an edge A → B when one of A's events matches B's trigger on the
//     same board
//  3. Report each edge as an "info" chain
//  4. Use Tarjan's algorithm to find strongly connected components and
//     report each SCC with size > 1 or a self-loop as a "warning" loop
//
// Nodes are visited in declaration order, so output is deterministic.
func AnalyzeCascades(automations []ir.Automation) []CascadeWarning {
	if len(automations) == 0 {
		return []CascadeWarning{}
	}

	graph, order := buildCascadeGraph(automations)

	var warnings []CascadeWarning
	for _, from := range order {
		for _, to := range graph[from] {
			if to == from {
				continue
			}
			warnings = append(warnings, CascadeWarning{
				Path:    []string{from, to},
				Message: fmt.Sprintf("%s can produce a change %s triggers on; the change is absorbed and %s will not fire from it", from, to, to),
				Level:   "info",
			})
		}
	}

	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, loopWarning(scc, graph, order))
		}
	}

	return warnings
}

// cascadeGraph maps automation id → automation ids its actions could trigger.
type cascadeGraph map[string][]string

func buildCascadeGraph(automations []ir.Automation) (cascadeGraph, []string) {
	graph := make(cascadeGraph, len(automations))
	order := make([]string, 0, len(automations))

	for _, a := range automations {
		order = append(order, a.ID)
		graph[a.ID] = []string{}
	}

	for _, a := range automations {
		for _, ev := range producedEvents(a) {
			for _, b := range engine.Match(ev, automations) {
				if !slices.Contains(graph[a.ID], b.ID) {
					graph[a.ID] = append(graph[a.ID], b.ID)
				}
			}
		}
	}
	return graph, order
}

// producedEvents lists the change events a's actions could cause on a card
// of a's board. Events that depend on the card's prior state (a move, a
// priority change) are included since some card will be in a different
// state.
func producedEvents(a ir.Automation) []ir.ChangeEvent {
	ev := func(kind ir.EventKind) ir.ChangeEvent {
		return ir.ChangeEvent{Kind: kind, BoardID: a.BoardID}
	}

	var events []ir.ChangeEvent
	for _, act := range a.Actions {
		switch x := act.(type) {
		case ir.SetPriority:
			e := ev(ir.EventPriorityChanged)
			e.Priority = x.Priority
			events = append(events, e)
		case ir.AddLabel:
			e := ev(ir.EventLabelAdded)
			e.LabelID = x.LabelID
			events = append(events, e)
		case ir.RemoveLabel:
			e := ev(ir.EventLabelRemoved)
			e.LabelID = x.LabelID
			events = append(events, e)
		case ir.MarkCompleted:
			events = append(events, ev(ir.EventCardCompleted))
		case ir.MarkUncompleted:
			events = append(events, ev(ir.EventCardUncompleted))
		case ir.MoveToColumn:
			e := ev(ir.EventCardMovedTo)
			e.ToColumnID = x.ColumnID
			events = append(events, e)
		case ir.SetDueDateDays:
			events = append(events, ev(ir.EventDueDateSet))
			if x.Days < 0 {
				events = append(events, ev(ir.EventDueDateOverdue))
			}
		case ir.ClearDueDate:
		}
	}
	return events
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph cascadeGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of automation ids.
// Single-node SCCs without self-loops are NOT loops.
func tarjanSCC(graph cascadeGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// loopWarning converts an SCC to a CascadeWarning.
func loopWarning(scc []string, graph cascadeGraph, order []string) CascadeWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CascadeWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("Self-triggering automation detected: %s → %s (absorbed by the reentrancy guard)", id, id),
			Level:   "warning",
		}
	}

	path := reconstructLoopPath(scc, graph, order)
	return CascadeWarning{
		Path:    path,
		Message: fmt.Sprintf("Feedback loop detected: %s (absorbed by the reentrancy guard)", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructLoopPath builds a loop path through an SCC, starting at the
// member declared first and following edges to other members until it
// returns to the start.
func reconstructLoopPath(scc []string, graph cascadeGraph, order []string) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	var start string
	for _, id := range order {
		if members[id] {
			start = id
			break
		}
	}

	path := []string{start}
	visited := map[string]bool{}
	current := start
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && neighbor != current && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
