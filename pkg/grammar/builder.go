package grammar

import (
	"gitlab.com/tozd/go/errors"
)

// Expr is a rule body expression. Builders compile expressions into network
// fragments; the set of expressions is closed.
type Expr interface {
	compile(c *compiler, from StateID) (StateID, error)
}

type tokExpr struct{ name string }

type refExpr struct{ name string }

type seqExpr struct{ items []Expr }

type altExpr struct{ items []Expr }

type starExpr struct{ body Expr }

type optExpr struct{ body Expr }

// Tok matches one token of the named vocabulary symbol.
func Tok(name string) Expr { return tokExpr{name: name} }

// Ref calls the named rule.
func Ref(name string) Expr { return refExpr{name: name} }

// Seq matches items in order.
func Seq(items ...Expr) Expr { return seqExpr{items: items} }

// Alt matches any one of items.
func Alt(items ...Expr) Expr { return altExpr{items: items} }

// Star matches body zero or more times.
func Star(body Expr) Expr { return starExpr{body: body} }

// Plus matches body one or more times.
func Plus(body Expr) Expr { return seqExpr{items: []Expr{body, starExpr{body: body}}} }

// Opt matches body zero or one time.
func Opt(body Expr) Expr { return optExpr{body: body} }

type ruleDef struct {
	name string
	body Expr
}

// Builder collects rule definitions and compiles them into a Network.
type Builder struct {
	vocab *Vocabulary
	defs  []ruleDef
}

func NewBuilder(vocab *Vocabulary) *Builder {
	return &Builder{vocab: vocab}
}

// Rule defines a rule. Rules may reference each other in any order.
func (b *Builder) Rule(name string, body Expr) *Builder {
	b.defs = append(b.defs, ruleDef{name: name, body: body})
	return b
}

// Build compiles all rules and designates entry as the start rule.
func (b *Builder) Build(entry string) (*Network, error) {
	if b.vocab == nil {
		return nil, errors.New("builder has no vocabulary")
	}
	if len(b.defs) == 0 {
		return nil, errors.New("grammar has no rules")
	}

	c := &compiler{
		net: &Network{
			vocab: b.vocab,
			entry: -1,
		},
		ruleIndex: make(map[string]int, len(b.defs)),
	}

	// start and end states are allocated up front so calls can be wired
	// before the callee body is compiled
	for i, def := range b.defs {
		if _, ok := c.ruleIndex[def.name]; ok {
			return nil, errors.Errorf("duplicate rule %q", def.name)
		}
		c.ruleIndex[def.name] = i
		c.rule = i
		start := c.newState(StateStart)
		end := c.newState(StateEnd)
		c.net.rules = append(c.net.rules, Rule{Name: def.name, Start: start, End: end})
		if def.name == entry {
			c.net.entry = i
		}
	}
	if c.net.entry < 0 {
		return nil, errors.Errorf("entry rule %q is not defined", entry)
	}

	for i, def := range b.defs {
		c.rule = i
		r := c.net.rules[i]
		if def.body == nil {
			return nil, errors.Errorf("rule %q has no body", def.name)
		}
		exit, err := def.body.compile(c, r.Start)
		if err != nil {
			return nil, errors.Errorf("compiling rule %q: %w", def.name, err)
		}
		c.epsilon(exit, r.End)
	}

	return c.net, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild(entry string) *Network {
	n, err := b.Build(entry)
	if err != nil {
		panic(err)
	}
	return n
}

type compiler struct {
	net       *Network
	ruleIndex map[string]int
	rule      int
}

func (c *compiler) newState(kind StateKind) StateID {
	id := StateID(len(c.net.states))
	c.net.states = append(c.net.states, State{ID: id, Kind: kind, Rule: c.rule})
	c.net.transitions = append(c.net.transitions, nil)
	return id
}

func (c *compiler) add(from StateID, t Transition) {
	c.net.transitions[from] = append(c.net.transitions[from], t)
}

func (c *compiler) epsilon(from, to StateID) {
	c.add(from, Transition{Kind: Epsilon, Target: to})
}

func (e tokExpr) compile(c *compiler, from StateID) (StateID, error) {
	t, ok := c.net.vocab.Lookup(e.name)
	if !ok {
		return 0, errors.Errorf("unknown token %q", e.name)
	}
	to := c.newState(StateIntermediate)
	c.add(from, Transition{Kind: Atomic, Label: t, Target: to})
	return to, nil
}

func (e refExpr) compile(c *compiler, from StateID) (StateID, error) {
	callee, ok := c.ruleIndex[e.name]
	if !ok {
		return 0, errors.Errorf("unknown rule %q", e.name)
	}
	call := c.newState(StateRuleCall)
	follow := c.newState(StateIntermediate)
	c.epsilon(from, call)
	c.add(call, Transition{
		Kind:   RuleCall,
		Target: c.net.rules[callee].Start,
		Return: follow,
		Rule:   callee,
	})
	return follow, nil
}

func (e seqExpr) compile(c *compiler, from StateID) (StateID, error) {
	cur := from
	for _, item := range e.items {
		next, err := item.compile(c, cur)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return cur, nil
}

func (e altExpr) compile(c *compiler, from StateID) (StateID, error) {
	if len(e.items) == 0 {
		return 0, errors.New("empty alternative")
	}
	join := c.newState(StateIntermediate)
	for _, item := range e.items {
		entry := c.newState(StateIntermediate)
		c.epsilon(from, entry)
		exit, err := item.compile(c, entry)
		if err != nil {
			return 0, err
		}
		c.epsilon(exit, join)
	}
	return join, nil
}

func (e starExpr) compile(c *compiler, from StateID) (StateID, error) {
	loop := c.newState(StateIntermediate)
	body := c.newState(StateIntermediate)
	exit := c.newState(StateIntermediate)
	c.epsilon(from, loop)
	c.epsilon(loop, body)
	c.epsilon(loop, exit)
	bodyExit, err := e.body.compile(c, body)
	if err != nil {
		return 0, err
	}
	c.epsilon(bodyExit, loop)
	return exit, nil
}

func (e optExpr) compile(c *compiler, from StateID) (StateID, error) {
	entry := c.newState(StateIntermediate)
	join := c.newState(StateIntermediate)
	c.epsilon(from, entry)
	c.epsilon(from, join)
	exit, err := e.body.compile(c, entry)
	if err != nil {
		return 0, err
	}
	c.epsilon(exit, join)
	return join, nil
}
