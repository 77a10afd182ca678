// Package walker computes the token types that may legally follow a token
// prefix by exploring a grammar network breadth first.
//
// The walk keeps a set of configurations, each a network state paired with an
// explicit call stack of pending return states. There is no backtracking and no
// recursion on the host stack: ambiguity is modeled by keeping every live
// configuration, and dead ones simply drop out of the set.
package walker

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultMaxConfigurations = 10000
	DefaultMaxStackDepth     = 128
)

// Budget bounds a single walk. Exceeding either limit truncates exploration and
// marks the result as degraded.
type Budget struct {
	// MaxConfigurations caps the configurations reachable in one step.
	MaxConfigurations int
	// MaxStackDepth caps nested rule calls.
	MaxStackDepth int
}

// DefaultBudget returns the budget used when none is configured.
func DefaultBudget() Budget {
	return Budget{
		MaxConfigurations: DefaultMaxConfigurations,
		MaxStackDepth:     DefaultMaxStackDepth,
	}
}

func (b Budget) normalize() Budget {
	if b.MaxConfigurations <= 0 {
		b.MaxConfigurations = DefaultMaxConfigurations
	}
	if b.MaxStackDepth <= 0 {
		b.MaxStackDepth = DefaultMaxStackDepth
	}
	return b
}

// Result is the outcome of a walk.
type Result struct {
	// Continuations lists the token types that may follow, in the order the
	// network first yields them. Empty when the prefix is invalid.
	Continuations []grammar.TokenType
	// Consumed is the number of tokens consumed before the walk stopped. It
	// equals the prefix length unless Dead is set.
	Consumed int
	// Dead reports that no configuration survived a token.
	Dead bool
	// Accepting reports that the entry rule can end after the full prefix.
	Accepting bool
	// Degraded reports that the budget cut exploration short, so
	// Continuations may be incomplete.
	Degraded bool
	// Active is the size of the final configuration set.
	Active int
}

// ValidPrefix is the length of the longest prefix the network accepted as a
// valid prefix.
func (r *Result) ValidPrefix() int {
	return r.Consumed
}

// Option configures a Walker.
type Option func(*Walker)

// WithBudget sets the exploration budget.
func WithBudget(b Budget) Option {
	return func(w *Walker) {
		w.budget = b.normalize()
	}
}

// Walker explores one network. It holds no per-walk state and is safe for
// concurrent use.
type Walker struct {
	net    *grammar.Network
	budget Budget
}

func New(net *grammar.Network, opts ...Option) *Walker {
	w := &Walker{
		net:    net,
		budget: DefaultBudget(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Walker) Budget() Budget {
	return w.budget
}

// ComputeContinuations walks tokens over net with the default budget and
// returns the continuation set.
func ComputeContinuations(ctx context.Context, net *grammar.Network, tokens []grammar.TokenType) ([]grammar.TokenType, error) {
	res, err := New(net).Walk(ctx, tokens)
	if err != nil {
		return nil, err
	}
	return res.Continuations, nil
}

// Walk consumes tokens from the entry rule and reports what may follow. The
// only error it returns is a context error; invalid prefixes are reported
// through Result.Dead.
func (w *Walker) Walk(ctx context.Context, tokens []grammar.TokenType) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	st := newWalk(w.net, w.budget)

	active, accepting, err := st.closure(ctx, []config{{state: w.net.Entry().Start, stack: emptyStack}})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("walking token %d: %w", i, err)
		}

		next := st.advance(active, tok)
		if len(next) == 0 {
			res.Dead = true
			res.Consumed = i
			res.Degraded = st.degraded
			logger.Debug().
				Int("consumed", i).
				Str("token", w.net.Vocabulary().Name(tok)).
				Msg("no configuration accepts token")
			return res, nil
		}

		active, accepting, err = st.closure(ctx, next)
		if err != nil {
			return nil, errors.Errorf("walking token %d: %w", i, err)
		}
	}

	res.Consumed = len(tokens)
	res.Accepting = accepting
	res.Continuations = st.labels(active)
	res.Degraded = st.degraded
	res.Active = len(active)

	logger.Debug().
		Int("consumed", res.Consumed).
		Int("active", res.Active).
		Bool("accepting", res.Accepting).
		Bool("degraded", res.Degraded).
		Strs("continuations", w.net.Vocabulary().Names(res.Continuations)).
		Msg("walk complete")

	return res, nil
}
