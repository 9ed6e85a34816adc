package network

import (
	"fmt"

	"i4.energy/across/nbsock/stm"
)

// Phase is where a Session is in its connect/disconnect cycle. Opening and
// Closing are only observable from inside the exchange itself.
type Phase uint8

const (
	PhaseClosed Phase = iota
	PhaseOpening
	PhaseOpen
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpening:
		return "opening"
	case PhaseOpen:
		return "open"
	case PhaseClosing:
		return "closing"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

const (
	evConnect stm.EventType = iota + 1
	evDisconnect
	evDone
)

// request carries the arguments and outcome of one Connect or Disconnect
// through the machine.
type request struct {
	host string
	port uint16
	ok   bool
}

// requestOf returns nil for events not raised by Connect or Disconnect.
// Entries and actions then do nothing and guards fail.
func requestOf(e *stm.Event) *request {
	req, _ := e.Data.(*request)
	return req
}

// lifecycle sequences the socket exchanges:
//
//	closed --connect--> opening --done--> [ok] open | [else] closed
//	open --disconnect--> closing --done--> [ok] closed | [else] open
//	closed --disconnect--> closed
type lifecycle struct {
	m      *stm.Machine
	phases map[stm.Handle]Phase
}

func newLifecycle(s *Session) lifecycle {
	m := stm.New(stm.WithLogger(s.logger))

	closed := m.State(PhaseClosed.String(), nil)
	opening := m.State(PhaseOpening.String(), func(e *stm.Event) {
		if req := requestOf(e); req != nil {
			req.ok = s.open(req.host, req.port)
			m.Dispatch(stm.NewEvent(evDone, req))
		}
	})
	open := m.State(PhaseOpen.String(), nil)
	closing := m.State(PhaseClosing.String(), func(e *stm.Event) {
		if req := requestOf(e); req != nil {
			req.ok = s.shut()
			m.Dispatch(stm.NewEvent(evDone, req))
		}
	})

	succeeded := func(e *stm.Event) bool {
		req := requestOf(e)
		return req != nil && req.ok
	}

	wire(m, m.Transition(closed, evConnect, nil), opening)
	wire(m, m.Transition(opening, evDone, nil), m.Choice(
		stm.Branch{Guard: succeeded, Target: open},
		stm.Branch{Target: closed},
	))
	wire(m, m.Transition(open, evDisconnect, nil), closing)
	wire(m, m.Transition(closing, evDone, nil), m.Choice(
		stm.Branch{Guard: succeeded, Target: closed},
		stm.Branch{Target: open},
	))
	wire(m, m.Transition(closed, evDisconnect, func(e *stm.Event) {
		if req := requestOf(e); req != nil {
			req.ok = true
		}
	}), closed)

	if err := m.Start(closed); err != nil {
		panic(err)
	}

	return lifecycle{
		m: m,
		phases: map[stm.Handle]Phase{
			closed:  PhaseClosed,
			opening: PhaseOpening,
			open:    PhaseOpen,
			closing: PhaseClosing,
		},
	}
}

// wire panics on a wiring error. The graph is static.
func wire(m *stm.Machine, tr, target stm.Handle) {
	if err := m.Target(tr, target); err != nil {
		panic(err)
	}
}

// dispatch reports whether the event was accepted in the current phase.
func (l lifecycle) dispatch(t stm.EventType, req *request) bool {
	e := stm.NewEvent(t, req)
	l.m.Dispatch(e)
	return e.State() == stm.Accepted
}

func (l lifecycle) phase() Phase {
	return l.phases[l.m.Current()]
}
