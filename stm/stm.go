// Package stm is a small state machine engine for sequencing multi-step
// modem exchanges.
//
// A Machine is an arena of nodes addressed by Handle. There are three
// kinds of node:
//
//   - State: a point of rest. Entering it makes it current and runs its
//     entry action.
//   - Transition: runs an action against the event, then passes the event
//     on to its target node.
//   - Choice: evaluates guards against the event and forwards it to the
//     first branch whose guard holds.
//
// Transitions refer to their targets by Handle, so graphs may share
// targets and contain cycles. A transition without a target, or with a
// target that is not a node of the machine, aborts the event. Callers
// check Event.State after Trigger or Dispatch; nothing panics.
package stm

import (
	"fmt"
	"log/slog"
)

// Handle addresses a node of a Machine.
type Handle int

// None is the absent target.
const None Handle = -1

// Kind discriminates node variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindState
	KindTransition
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindTransition:
		return "transition"
	case KindChoice:
		return "choice"
	default:
		return "invalid"
	}
}

// Action is a side effect run with the current event.
type Action func(e *Event)

// Guard decides whether a choice branch is taken.
type Guard func(e *Event) bool

// Branch is one outgoing edge of a choice. A nil Guard always holds, so an
// else-branch goes last.
type Branch struct {
	Guard  Guard
	Target Handle
}

type node struct {
	kind Kind
	name string

	// state
	entry Action
	out   []Handle

	// transition
	action    Action
	target    Handle
	eventType EventType

	// choice
	branches []Branch
}

// DefaultMaxSteps bounds how many transitions and choices a single
// traversal may pass through before the event is aborted.
const DefaultMaxSteps = 256

// Machine holds the node graph and the current state.
type Machine struct {
	nodes    []node
	current  Handle
	maxSteps int
	logger   *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(m *Machine) {
		m.maxSteps = n
	}
}

// New returns an empty Machine with no current state.
func New(opts ...Option) *Machine {
	m := &Machine{
		current:  None,
		maxSteps: DefaultMaxSteps,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) add(n node) Handle {
	m.nodes = append(m.nodes, n)
	return Handle(len(m.nodes) - 1)
}

func (m *Machine) node(h Handle) (*node, bool) {
	if h < 0 || int(h) >= len(m.nodes) {
		return nil, false
	}
	return &m.nodes[h], true
}

// State adds a state. entry may be nil.
func (m *Machine) State(name string, entry Action) Handle {
	return m.add(node{kind: KindState, name: name, entry: entry})
}

// Transition adds a transition leaving from for events of type t. Its
// target is None until set with Target. from may be None for transitions
// that are only ever reached by Trigger or from another node.
func (m *Machine) Transition(from Handle, t EventType, action Action) Handle {
	h := m.add(node{kind: KindTransition, action: action, target: None, eventType: t})
	if s, ok := m.node(from); ok && s.kind == KindState {
		s.out = append(s.out, h)
	}
	return h
}

// Choice adds a guarded branch point.
func (m *Machine) Choice(branches ...Branch) Handle {
	return m.add(node{kind: KindChoice, branches: branches})
}

// Target points transition tr at target. Any handle is accepted, so graphs
// can be wired before every node exists; a dangling target aborts at
// traversal time.
func (m *Machine) Target(tr, target Handle) error {
	n, ok := m.node(tr)
	if !ok || n.kind != KindTransition {
		return fmt.Errorf("stm: handle %d is not a transition", tr)
	}
	n.target = target
	return nil
}

// Start makes s the current state without running its entry action.
func (m *Machine) Start(s Handle) error {
	if m.Kind(s) != KindState {
		return fmt.Errorf("stm: handle %d is not a state", s)
	}
	m.current = s
	return nil
}

// Current returns the current state, or None before Start.
func (m *Machine) Current() Handle {
	return m.current
}

// Kind returns the kind of node h, KindInvalid if h is not a node.
func (m *Machine) Kind(h Handle) Kind {
	if n, ok := m.node(h); ok {
		return n.kind
	}
	return KindInvalid
}

// Name returns the name of state h.
func (m *Machine) Name(h Handle) string {
	if n, ok := m.node(h); ok {
		return n.name
	}
	return ""
}

// Dispatch fires the first transition of the current state registered for
// e.Type. Without one the event is marked Ignored and Dispatch returns
// false.
func (m *Machine) Dispatch(e *Event) bool {
	e.setState(Pending)
	s, ok := m.node(m.current)
	if ok {
		for _, tr := range s.out {
			if m.nodes[tr].eventType == e.Type {
				m.Trigger(tr, e)
				return true
			}
		}
	}
	m.logger.Debug("event ignored", "state", m.Name(m.current), "event", e.Type)
	e.setState(Ignored)
	return false
}

// Trigger runs transition tr with e and follows its target chain until a
// state is entered. Actions are side effects only; the target is always
// inspected after them. A missing or unrecognised target aborts e, as does
// a tr that is not a transition. e starts out Pending on every call, so an
// event may be reused.
func (m *Machine) Trigger(tr Handle, e *Event) {
	e.setState(Pending)
	if m.Kind(tr) != KindTransition {
		e.setState(Aborted)
		return
	}
	m.deliver(tr, e, 0)
}

func (m *Machine) deliver(h Handle, e *Event, steps int) {
	if steps > m.maxSteps {
		m.logger.Warn("traversal step budget exceeded", "event", e.Type, "steps", steps)
		e.setState(Aborted)
		return
	}

	n, ok := m.node(h)
	if !ok {
		e.setState(Aborted)
		return
	}

	switch n.kind {
	case KindTransition:
		if n.action != nil {
			n.action(e)
		}
		// The action may have grown the arena; re-read the node.
		target := m.nodes[h].target
		if m.Kind(target) == KindInvalid {
			m.logger.Debug("transition has no target", "transition", h, "event", e.Type)
			e.setState(Aborted)
			return
		}
		m.deliver(target, e, steps+1)
	case KindChoice:
		for _, b := range n.branches {
			if b.Guard == nil || b.Guard(e) {
				m.deliver(b.Target, e, steps+1)
				return
			}
		}
		m.logger.Debug("no choice branch taken", "choice", h, "event", e.Type)
		e.setState(Aborted)
	case KindState:
		m.enter(h, n, e)
	default:
		e.setState(Aborted)
	}
}

func (m *Machine) enter(h Handle, n *node, e *Event) {
	m.current = h
	e.setState(Accepted)
	if n.entry != nil {
		n.entry(e)
	}
}
