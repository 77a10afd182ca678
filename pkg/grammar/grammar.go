// Package grammar holds the augmented transition network (ATN) that the
// completion walker explores.
//
// A Network is compiled once by a Builder and is read-only afterwards, so a
// single instance can serve any number of concurrent completion requests.
//
// Grammar shape matters downstream: the tree builder that feeds scope
// resolution decides between alternatives with bounded lookahead. Rules whose
// alternatives share an unbounded common prefix force it to give up and emit a
// single error node, which hides every scope inside it. Grammars fed to this
// package are expected to be left-factored at such decision points; nothing at
// walk time tries to compensate for trees built from grammars that are not.
package grammar

import (
	"fmt"
)

// StateKind classifies network states.
type StateKind uint8

const (
	StateStart StateKind = iota
	StateIntermediate
	StateRuleCall
	StateEnd
)

func (k StateKind) String() string {
	switch k {
	case StateStart:
		return "start"
	case StateIntermediate:
		return "intermediate"
	case StateRuleCall:
		return "rule-call"
	case StateEnd:
		return "end"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// TransitionKind classifies network edges.
type TransitionKind uint8

const (
	// Atomic consumes exactly one token of the labeled type.
	Atomic TransitionKind = iota
	// Epsilon consumes nothing.
	Epsilon
	// RuleCall enters another rule and resumes at Return when it ends.
	RuleCall
)

func (k TransitionKind) String() string {
	switch k {
	case Atomic:
		return "atomic"
	case Epsilon:
		return "epsilon"
	case RuleCall:
		return "rule-call"
	default:
		return fmt.Sprintf("TransitionKind(%d)", int(k))
	}
}

// StateID indexes Network states.
type StateID int

// State is a node of the network. It belongs to exactly one rule.
type State struct {
	ID   StateID
	Kind StateKind
	Rule int
}

// Transition is a directed, labeled edge.
type Transition struct {
	Kind TransitionKind
	// Label is only meaningful for Atomic transitions.
	Label TokenType
	// Target is the next state, or the callee's start state for RuleCall.
	Target StateID
	// Return is the caller state to resume at after a RuleCall.
	Return StateID
	// Rule is the callee rule index for RuleCall.
	Rule int
}

// Rule is one named sub-network.
type Rule struct {
	Name  string
	Start StateID
	End   StateID
}

// Network is the immutable grammar network.
type Network struct {
	vocab       *Vocabulary
	states      []State
	transitions [][]Transition
	rules       []Rule
	entry       int
}

func (n *Network) Vocabulary() *Vocabulary {
	return n.vocab
}

// Entry returns the rule the walk starts in.
func (n *Network) Entry() Rule {
	return n.rules[n.entry]
}

// State returns the state with the given id.
func (n *Network) State(id StateID) State {
	return n.states[id]
}

// Transitions returns the outgoing edges of a state. The returned slice must
// not be modified.
func (n *Network) Transitions(id StateID) []Transition {
	return n.transitions[id]
}

// Rule returns the rule at index i.
func (n *Network) Rule(i int) Rule {
	return n.rules[i]
}

// RuleByName finds a rule by name.
func (n *Network) RuleByName(name string) (Rule, bool) {
	for _, r := range n.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

func (n *Network) NumStates() int {
	return len(n.states)
}

func (n *Network) NumRules() int {
	return len(n.rules)
}
