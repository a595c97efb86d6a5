package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Runnable is a compiled, immutable graph. It is safe to invoke from several
// goroutines as long as each invocation owns its state.
type Runnable[S any] struct {
	nodes    map[string]NodeFunc[S]
	order    []string
	edges    map[string]string
	branches map[string]branch[S]
	limits   map[string]visitLimit
	entry    string
	maxSteps int
	logger   *zap.Logger
}

// Step records one executed node.
type Step struct {
	Index    int
	Node     string
	Route    string
	Next     string
	Duration time.Duration
}

// Result is returned by every invocation, also on error. State is the last
// state a node returned completely.
type Result[S any] struct {
	State S
	Steps []Step
}

// Path returns the executed node names in order.
func (r *Result[S]) Path() []string {
	path := make([]string, 0, len(r.Steps))
	for _, step := range r.Steps {
		path = append(path, step.Node)
	}
	return path
}

// Visits counts how many times node was executed.
func (r *Result[S]) Visits(node string) int {
	count := 0
	for _, step := range r.Steps {
		if step.Node == node {
			count++
		}
	}
	return count
}

// Invoke runs the graph from the entry point until END.
func (r *Runnable[S]) Invoke(ctx context.Context, s S) (*Result[S], error) {
	return r.InvokeWithLogger(ctx, s, r.logger)
}

// InvokeWithLogger runs the graph logging through the provided logger, which
// usually carries per-run fields.
func (r *Runnable[S]) InvokeWithLogger(ctx context.Context, s S, logger *zap.Logger) (*Result[S], error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &Result[S]{State: s}
	visits := make(map[string]int, len(r.nodes))
	current := r.entry
	redirects := 0

	for current != END {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("before node %s: %w", current, err)
		}

		if limit, ok := r.limits[current]; ok && visits[current] >= limit.max {
			redirects++
			if redirects > len(r.nodes) {
				return result, fmt.Errorf("node %s: %w: visit limit fallbacks form a cycle", current, ErrStepLimit)
			}
			logger.Warn("node visit limit reached",
				zap.String("node", current),
				zap.Int("visits", visits[current]),
				zap.String("fallback", limit.fallback),
			)
			current = limit.fallback
			continue
		}

		if len(result.Steps) >= r.maxSteps {
			return result, fmt.Errorf("node %s: %w (%d)", current, ErrStepLimit, r.maxSteps)
		}

		fn := r.nodes[current]
		if fn == nil {
			return result, fmt.Errorf("node %s: %w", current, ErrUnknownNode)
		}

		visits[current]++
		started := time.Now()

		logger.Debug("entering node", zap.String("node", current), zap.Int("visit", visits[current]))

		next, err := fn(ctx, result.State)
		if err != nil {
			return result, fmt.Errorf("node %s: %w", current, err)
		}
		result.State = next

		route, nextNode, err := r.dispatch(current, result.State)
		step := Step{
			Index:    len(result.Steps),
			Node:     current,
			Route:    route,
			Next:     nextNode,
			Duration: time.Since(started),
		}
		result.Steps = append(result.Steps, step)

		if err != nil {
			return result, err
		}

		logger.Info("node finished",
			zap.String("node", step.Node),
			zap.Int("index", step.Index),
			zap.String("route", step.Route),
			zap.String("next", step.Next),
			zap.Duration("duration", step.Duration),
		)

		current = nextNode
	}

	return result, nil
}

func (r *Runnable[S]) dispatch(from string, s S) (string, string, error) {
	if to, ok := r.edges[from]; ok {
		return "", to, nil
	}

	b, ok := r.branches[from]
	if !ok {
		return "", "", fmt.Errorf("node %s: no outgoing edge: %w", from, ErrUnknownNode)
	}

	label := b.router(s)
	if clearer, ok := any(s).(RouteClearer); ok {
		clearer.ClearRoute()
	}

	to, ok := b.targets[label]
	if !ok {
		return label, "", fmt.Errorf("node %s: label %q: %w", from, label, ErrUnknownRoute)
	}

	return label, to, nil
}
