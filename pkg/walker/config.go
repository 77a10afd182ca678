package walker

import (
	"context"

	"github.com/walteh/atncomplete/pkg/grammar"
	"gitlab.com/tozd/go/errors"
)

type stackID int

// emptyStack is the id of the stack with no pending returns.
const emptyStack stackID = 0

type frame struct {
	parent stackID
	ret    grammar.StateID
	depth  int
}

type frameKey struct {
	parent stackID
	ret    grammar.StateID
}

// config is a traversal position. Stacks are interned per walk, so two
// configurations with equal call stacks carry the same stackID.
type config struct {
	state grammar.StateID
	stack stackID
}

type walk struct {
	net      *grammar.Network
	budget   Budget
	frames   []frame
	interned map[frameKey]stackID
	degraded bool
}

func newWalk(net *grammar.Network, budget Budget) *walk {
	return &walk{
		net:      net,
		budget:   budget,
		frames:   []frame{{parent: emptyStack, ret: -1, depth: 0}},
		interned: make(map[frameKey]stackID),
	}
}

func (w *walk) push(parent stackID, ret grammar.StateID) stackID {
	key := frameKey{parent: parent, ret: ret}
	if id, ok := w.interned[key]; ok {
		return id
	}
	id := stackID(len(w.frames))
	w.frames = append(w.frames, frame{parent: parent, ret: ret, depth: w.frames[parent].depth + 1})
	w.interned[key] = id
	return id
}

// closure expands seeds across epsilon edges, rule calls and rule returns
// until nothing new is reachable without input. It returns the configurations
// that can consume a token, and whether the entry rule can end here.
func (w *walk) closure(ctx context.Context, seeds []config) ([]config, bool, error) {
	seen := make(map[config]struct{}, len(seeds)*2)
	queue := make([]config, 0, len(seeds)*2)

	enqueue := func(c config) {
		if _, ok := seen[c]; ok {
			return
		}
		if len(seen) >= w.budget.MaxConfigurations {
			w.degraded = true
			return
		}
		seen[c] = struct{}{}
		queue = append(queue, c)
	}

	for _, c := range seeds {
		enqueue(c)
	}

	var (
		active    []config
		accepting bool
	)

	for i := 0; i < len(queue); i++ {
		if err := ctx.Err(); err != nil {
			return nil, false, errors.Errorf("expanding closure: %w", err)
		}

		c := queue[i]
		state := w.net.State(c.state)

		if state.Kind == grammar.StateEnd {
			if c.stack == emptyStack {
				accepting = true
			} else {
				f := w.frames[c.stack]
				enqueue(config{state: f.ret, stack: f.parent})
			}
		}

		consumes := false
		for _, tr := range w.net.Transitions(c.state) {
			switch tr.Kind {
			case grammar.Atomic:
				consumes = true
			case grammar.Epsilon:
				enqueue(config{state: tr.Target, stack: c.stack})
			case grammar.RuleCall:
				if w.frames[c.stack].depth >= w.budget.MaxStackDepth {
					w.degraded = true
					continue
				}
				enqueue(config{state: tr.Target, stack: w.push(c.stack, tr.Return)})
			}
		}
		if consumes {
			active = append(active, c)
		}
	}

	return active, accepting, nil
}

// advance moves every configuration across the atomic edges labeled tok.
// Configurations without such an edge die.
func (w *walk) advance(active []config, tok grammar.TokenType) []config {
	var next []config
	seen := make(map[config]struct{})
	for _, c := range active {
		for _, tr := range w.net.Transitions(c.state) {
			if tr.Kind != grammar.Atomic || tr.Label != tok {
				continue
			}
			n := config{state: tr.Target, stack: c.stack}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			next = append(next, n)
		}
	}
	return next
}

// labels collects the atomic labels of active in first-seen order.
func (w *walk) labels(active []config) []grammar.TokenType {
	var out []grammar.TokenType
	seen := make(map[grammar.TokenType]struct{})
	for _, c := range active {
		for _, tr := range w.net.Transitions(c.state) {
			if tr.Kind != grammar.Atomic {
				continue
			}
			if _, ok := seen[tr.Label]; ok {
				continue
			}
			seen[tr.Label] = struct{}{}
			out = append(out, tr.Label)
		}
	}
	return out
}
