// Package graph runs a small directed graph of stages over a shared state.
//
// Nodes are added by name, connected with plain or conditional edges and
// compiled into a Runnable. Execution is sequential: exactly one node runs at
// a time and the next node is chosen from the state the previous one
// returned.
package graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// END is the terminal pseudo node.
const END = "END"

const defaultMaxSteps = 32

var (
	ErrUnknownNode  = errors.New("unknown node")
	ErrUnknownRoute = errors.New("unknown route")
	ErrStepLimit    = errors.New("step limit reached")
)

// NodeFunc runs one stage. It receives and returns the shared state.
type NodeFunc[S any] func(ctx context.Context, s S) (S, error)

// RouterFunc returns the label used to pick the next node of a conditional edge.
type RouterFunc[S any] func(s S) string

// RouteClearer is implemented by states that keep the last routing label.
// The label is cleared as soon as it has been dispatched.
type RouteClearer interface {
	ClearRoute()
}

type branch[S any] struct {
	router  RouterFunc[S]
	targets map[string]string
}

type visitLimit struct {
	max      int
	fallback string
}

// Graph is the mutable builder.
type Graph[S any] struct {
	nodes    map[string]NodeFunc[S]
	order    []string
	edges    map[string]string
	branches map[string]branch[S]
	limits   map[string]visitLimit
	entry    string
	maxSteps int
	logger   *zap.Logger
	errs     []error
}

// New creates an empty graph.
func New[S any](logger *zap.Logger) *Graph[S] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string]string),
		branches: make(map[string]branch[S]),
		limits:   make(map[string]visitLimit),
		maxSteps: defaultMaxSteps,
		logger:   logger,
	}
}

func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	name = strings.TrimSpace(name)
	switch {
	case name == "" || name == END:
		g.errs = append(g.errs, fmt.Errorf("invalid node name %q", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %s: nil function", name))
	case g.nodes[name] != nil:
		g.errs = append(g.errs, fmt.Errorf("node %s: already added", name))
	default:
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if _, ok := g.edges[from]; ok {
		g.errs = append(g.errs, fmt.Errorf("node %s: edge already set", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdges routes from a node by the label its router returns.
// Labels missing from targets fail the run with ErrUnknownRoute.
func (g *Graph[S]) AddConditionalEdges(from string, router RouterFunc[S], targets map[string]string) *Graph[S] {
	if router == nil {
		g.errs = append(g.errs, fmt.Errorf("node %s: nil router", from))
		return g
	}
	if _, ok := g.branches[from]; ok {
		g.errs = append(g.errs, fmt.Errorf("node %s: conditional edges already set", from))
		return g
	}

	g.branches[from] = branch[S]{router: router, targets: maps.Clone(targets)}
	return g
}

func (g *Graph[S]) SetEntryPoint(name string) *Graph[S] {
	g.entry = name
	return g
}

// SetMaxVisits bounds how many times a node may run in one invocation. A
// transition into the node once the bound is reached goes to fallback instead.
func (g *Graph[S]) SetMaxVisits(node string, limit int, fallback string) *Graph[S] {
	if limit < 1 {
		g.errs = append(g.errs, fmt.Errorf("node %s: max visits must be positive", node))
		return g
	}
	g.limits[node] = visitLimit{max: limit, fallback: fallback}
	return g
}

// SetMaxSteps bounds the total number of node executions per invocation.
func (g *Graph[S]) SetMaxSteps(n int) *Graph[S] {
	if n > 0 {
		g.maxSteps = n
	}
	return g
}

// Compile validates the topology and freezes it.
func (g *Graph[S]) Compile() (*Runnable[S], error) {
	errs := slices.Clone(g.errs)

	known := func(name string) bool {
		if name == END {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	if g.entry == "" {
		errs = append(errs, errors.New("entry point is not set"))
	} else if g.nodes[g.entry] == nil {
		errs = append(errs, fmt.Errorf("entry point %s: %w", g.entry, ErrUnknownNode))
	}

	for _, name := range g.order {
		_, plain := g.edges[name]
		_, conditional := g.branches[name]
		switch {
		case plain && conditional:
			errs = append(errs, fmt.Errorf("node %s: has both plain and conditional edges", name))
		case !plain && !conditional:
			errs = append(errs, fmt.Errorf("node %s: has no outgoing edge", name))
		}
	}

	for from, to := range g.edges {
		if !known(from) || from == END {
			errs = append(errs, fmt.Errorf("edge from %s: %w", from, ErrUnknownNode))
		}
		if !known(to) {
			errs = append(errs, fmt.Errorf("edge %s -> %s: %w", from, to, ErrUnknownNode))
		}
	}

	for from, b := range g.branches {
		if !known(from) || from == END {
			errs = append(errs, fmt.Errorf("conditional edge from %s: %w", from, ErrUnknownNode))
		}
		if len(b.targets) == 0 {
			errs = append(errs, fmt.Errorf("conditional edge from %s: no targets", from))
		}
		for label, to := range b.targets {
			if !known(to) {
				errs = append(errs, fmt.Errorf("conditional edge %s -[%s]-> %s: %w", from, label, to, ErrUnknownNode))
			}
		}
	}

	for node, limit := range g.limits {
		if !known(node) || node == END {
			errs = append(errs, fmt.Errorf("visit limit on %s: %w", node, ErrUnknownNode))
		}
		if !known(limit.fallback) || limit.fallback == node {
			errs = append(errs, fmt.Errorf("visit limit fallback %s for %s: %w", limit.fallback, node, ErrUnknownNode))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("compile graph: %w", errors.Join(errs...))
	}

	return &Runnable[S]{
		nodes:    g.nodes,
		order:    slices.Clone(g.order),
		edges:    g.edges,
		branches: g.branches,
		limits:   g.limits,
		entry:    g.entry,
		maxSteps: g.maxSteps,
		logger:   g.logger,
	}, nil
}

// Describe lists the edges of the graph in insertion order of their source
// nodes, one per line.
func (r *Runnable[S]) Describe() []string {
	lines := make([]string, 0, len(r.order)+1)
	lines = append(lines, fmt.Sprintf("entry -> %s", r.entry))

	for _, name := range r.order {
		if to, ok := r.edges[name]; ok {
			lines = append(lines, fmt.Sprintf("%s -> %s", name, to))
			continue
		}

		b := r.branches[name]
		labels := make([]string, 0, len(b.targets))
		for label := range b.targets {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			lines = append(lines, fmt.Sprintf("%s -[%s]-> %s", name, label, b.targets[label]))
		}
	}

	for _, name := range r.order {
		if limit, ok := r.limits[name]; ok {
			lines = append(lines, fmt.Sprintf("%s: at most %d run(s), then -> %s", name, limit.max, limit.fallback))
		}
	}

	return lines
}

// Nodes returns node names in insertion order.
func (r *Runnable[S]) Nodes() []string {
	return slices.Clone(r.order)
}
