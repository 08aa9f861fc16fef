// Package graph provides a minimal directed state graph for driving agent
// control flow. Nodes transform a state value; edges (static or conditional)
// choose the next node. Compilation validates the wiring up front so a bad
// route is a construction error, not a runtime surprise.
package graph

import (
	"context"
	"fmt"
)

const (
	// Start is the virtual entry point; its edge names the first real node.
	Start = "__start__"
	// End terminates execution.
	End = "__end__"
)

// NodeFunc transforms the state and returns its replacement.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouteFunc inspects the state and names the next node.
type RouteFunc[S any] func(state S) string

type conditionalEdge[S any] struct {
	route   RouteFunc[S]
	targets map[string]string
}

// StateGraph accumulates nodes and edges until Compile.
type StateGraph[S any] struct {
	nodes       map[string]NodeFunc[S]
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
}

func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:       make(map[string]NodeFunc[S]),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge[S]),
	}
}

func (g *StateGraph[S]) AddNode(name string, fn NodeFunc[S]) *StateGraph[S] {
	g.nodes[name] = fn
	return g
}

// AddEdge wires an unconditional transition from one node to another.
func (g *StateGraph[S]) AddEdge(from, to string) *StateGraph[S] {
	g.edges[from] = to
	return g
}

// AddConditionalEdges wires a routed transition: route returns a key that is
// looked up in targets to find the next node.
func (g *StateGraph[S]) AddConditionalEdges(from string, route RouteFunc[S], targets map[string]string) *StateGraph[S] {
	g.conditional[from] = conditionalEdge[S]{route: route, targets: targets}
	return g
}

// Compile validates the graph and freezes it into a runnable form.
// Every edge must lead to a registered node or End, every node needs an
// outgoing edge, and an entry edge from Start must exist.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if _, ok := g.edges[Start]; !ok {
		return nil, fmt.Errorf("graph: no entry edge from start")
	}

	validTarget := func(name string) bool {
		if name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	for from, to := range g.edges {
		if from != Start {
			if _, ok := g.nodes[from]; !ok {
				return nil, fmt.Errorf("graph: edge from unknown node %q", from)
			}
		}
		if !validTarget(to) {
			return nil, fmt.Errorf("graph: edge %q -> %q targets unknown node", from, to)
		}
	}

	for from, edge := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("graph: conditional edge from unknown node %q", from)
		}
		for key, to := range edge.targets {
			if !validTarget(to) {
				return nil, fmt.Errorf("graph: conditional edge %q[%q] -> %q targets unknown node", from, key, to)
			}
		}
	}

	for name := range g.nodes {
		_, hasStatic := g.edges[name]
		_, hasConditional := g.conditional[name]
		if !hasStatic && !hasConditional {
			return nil, fmt.Errorf("graph: node %q has no outgoing edge", name)
		}
	}

	return &Runnable[S]{graph: g}, nil
}

// Runnable is a compiled graph.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Invoke runs the graph from Start until End or until maxSteps node
// executions, whichever comes first. Hitting the step bound is an error;
// callers that want a soft landing should bound inside their own nodes.
func (r *Runnable[S]) Invoke(ctx context.Context, state S, maxSteps int) (S, error) {
	current := r.graph.edges[Start]

	for steps := 0; ; steps++ {
		if current == End {
			return state, nil
		}
		if maxSteps > 0 && steps >= maxSteps {
			return state, fmt.Errorf("graph: exceeded %d steps without reaching end", maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		fn := r.graph.nodes[current]
		next, err := fn(ctx, state)
		if err != nil {
			return state, fmt.Errorf("graph: node %q: %w", current, err)
		}
		state = next

		if edge, ok := r.graph.conditional[current]; ok {
			key := edge.route(state)
			target, ok := edge.targets[key]
			if !ok {
				return state, fmt.Errorf("graph: node %q routed to unmapped key %q", current, key)
			}
			current = target
			continue
		}
		current = r.graph.edges[current]
	}
}
